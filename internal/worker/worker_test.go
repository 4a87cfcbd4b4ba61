package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"autorespond/internal/domain"
)

type fakeSender struct {
	sends     []domain.DeliveryJob
	labels    []domain.DeliveryJob
	reads     []domain.DeliveryJob
	sendErr   error
	labelErr  error
	markError error
}

func (f *fakeSender) SendReply(ctx context.Context, job domain.DeliveryJob) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sends = append(f.sends, job)
	return nil
}

func (f *fakeSender) ApplyLabel(ctx context.Context, job domain.DeliveryJob) error {
	if f.labelErr != nil {
		return f.labelErr
	}
	f.labels = append(f.labels, job)
	return nil
}

func (f *fakeSender) MarkRead(ctx context.Context, job domain.DeliveryJob) error {
	if f.markError != nil {
		return f.markError
	}
	f.reads = append(f.reads, job)
	return nil
}

func newTestWorker(gmail, outlook Sender) *Worker {
	senders := map[domain.Provider]Sender{}
	if gmail != nil {
		senders[domain.ProviderGmail] = gmail
	}
	if outlook != nil {
		senders[domain.ProviderOutlook] = outlook
	}
	return New(senders, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func job(provider domain.Provider, label domain.Label, reply string) domain.DeliveryJob {
	return domain.DeliveryJob{
		JobID:     "job-1",
		Provider:  provider,
		MessageID: "m1",
		ThreadID:  "t1",
		Recipient: "alice@example.com",
		Label:     label,
		Reply:     reply,
	}
}

func TestSendThenLabelThenRead(t *testing.T) {
	sender := &fakeSender{}
	w := newTestWorker(sender, nil)

	err := w.Handle(context.Background(), job(domain.ProviderGmail, domain.LabelNotInterested, "Thanks for letting us know."))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(sender.sends) != 1 || len(sender.labels) != 1 || len(sender.reads) != 1 {
		t.Fatalf("sends=%d labels=%d reads=%d, want 1 each",
			len(sender.sends), len(sender.labels), len(sender.reads))
	}
	if sender.sends[0].Reply != "Thanks for letting us know." {
		t.Errorf("sent reply = %q", sender.sends[0].Reply)
	}
}

func TestEscalatedJobNeverSends(t *testing.T) {
	sender := &fakeSender{}
	w := newTestWorker(nil, sender)

	err := w.Handle(context.Background(), job(domain.ProviderOutlook, domain.LabelHumanInterventionRequired, ""))
	if err != nil {
		t.Fatalf("Handle should complete escalated jobs: %v", err)
	}

	if len(sender.sends) != 0 {
		t.Errorf("escalated job triggered %d sends", len(sender.sends))
	}
	if len(sender.reads) != 0 {
		t.Errorf("escalated job marked message read")
	}
	// The thread still gets the escalation label for human follow-up.
	if len(sender.labels) != 1 {
		t.Fatalf("labels = %d, want 1", len(sender.labels))
	}
	if sender.labels[0].Label != domain.LabelHumanInterventionRequired {
		t.Errorf("applied label = %q", sender.labels[0].Label)
	}
}

func TestEscalatedJobCompletesDespiteLabelFailure(t *testing.T) {
	sender := &fakeSender{labelErr: fmt.Errorf("category service down")}
	w := newTestWorker(nil, sender)

	err := w.Handle(context.Background(), job(domain.ProviderOutlook, domain.LabelHumanInterventionRequired, ""))
	if err != nil {
		t.Fatalf("escalated job must not be retried for label failure: %v", err)
	}
}

func TestSendFailureReturnsError(t *testing.T) {
	sender := &fakeSender{sendErr: fmt.Errorf("smtp backend unavailable")}
	w := newTestWorker(sender, nil)

	err := w.Handle(context.Background(), job(domain.ProviderGmail, domain.LabelInterested, "Great."))
	if err == nil {
		t.Fatal("send failure must surface to the broker")
	}
	if len(sender.labels) != 0 || len(sender.reads) != 0 {
		t.Error("label/read applied although send failed")
	}
}

func TestLabelFailureAfterSendIsNonFatal(t *testing.T) {
	sender := &fakeSender{labelErr: fmt.Errorf("label gone")}
	w := newTestWorker(sender, nil)

	err := w.Handle(context.Background(), job(domain.ProviderGmail, domain.LabelInterested, "Great."))
	if err != nil {
		t.Fatalf("label failure after send must not retry the job: %v", err)
	}
	if len(sender.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(sender.sends))
	}
	if len(sender.reads) != 1 {
		t.Errorf("mark read skipped after label failure")
	}
}

func TestUnknownProviderAcked(t *testing.T) {
	w := newTestWorker(nil, nil)

	err := w.Handle(context.Background(), job("fastmail", domain.LabelInterested, "Great."))
	if err != nil {
		t.Fatalf("unknown provider must be dropped, not retried: %v", err)
	}
}

func TestDispatchRoutesByProvider(t *testing.T) {
	gmailSender := &fakeSender{}
	outlookSender := &fakeSender{}
	w := newTestWorker(gmailSender, outlookSender)

	ctx := context.Background()
	if err := w.Handle(ctx, job(domain.ProviderGmail, domain.LabelInterested, "a")); err != nil {
		t.Fatal(err)
	}
	if err := w.Handle(ctx, job(domain.ProviderOutlook, domain.LabelMoreInformation, "b")); err != nil {
		t.Fatal(err)
	}

	if len(gmailSender.sends) != 1 || len(outlookSender.sends) != 1 {
		t.Errorf("gmail sends=%d outlook sends=%d, want 1 each",
			len(gmailSender.sends), len(outlookSender.sends))
	}
}
