// Package worker consumes delivery jobs and dispatches them to the sender
// for the job's provider. Retry and backoff belong to the queue broker: the
// handler only decides between ack (done or not worth retrying) and an
// error (redeliver).
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"autorespond/internal/domain"
)

// Sender is the per-provider delivery capability. Adding a provider means
// one more implementation and one more map entry, nothing else.
type Sender interface {
	SendReply(ctx context.Context, job domain.DeliveryJob) error
	ApplyLabel(ctx context.Context, job domain.DeliveryJob) error
	MarkRead(ctx context.Context, job domain.DeliveryJob) error
}

type Worker struct {
	senders map[domain.Provider]Sender
	log     *slog.Logger
}

func New(senders map[domain.Provider]Sender, log *slog.Logger) *Worker {
	return &Worker{
		senders: senders,
		log:     log.With("component", "worker"),
	}
}

// Handle processes one claimed job. Escalated jobs are labelled but never
// sent. A send failure is returned to the broker; failures after a
// successful send are logged only, because the reply having gone out is the
// higher-priority fact.
func (w *Worker) Handle(ctx context.Context, job domain.DeliveryJob) error {
	log := w.log.With("job_id", job.JobID, "provider", job.Provider, "message", job.MessageID)

	sender, ok := w.senders[job.Provider]
	if !ok {
		// Poison job: retrying cannot fix an unknown provider.
		log.Error("no sender for provider, dropping job")
		return nil
	}

	if job.Label.IsEscalation() {
		if err := sender.ApplyLabel(ctx, job); err != nil {
			log.Error("label application failed on escalated job", "error", err)
		}
		log.Info("escalated to human, no reply sent", "label", job.Label)
		return nil
	}

	if err := sender.SendReply(ctx, job); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}

	if err := sender.ApplyLabel(ctx, job); err != nil {
		log.Error("label application failed after send", "label", job.Label, "error", err)
	}
	if err := sender.MarkRead(ctx, job); err != nil {
		log.Error("mark read failed after send", "error", err)
	}

	log.Info("reply sent", "label", job.Label)
	return nil
}
