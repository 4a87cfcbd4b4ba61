// Package poller drives one mailbox: it periodically lists candidate
// messages, classifies them, resolves the mailbox label, and enqueues a
// delivery job per message. Messages are handled strictly sequentially to
// bound provider rate-limit exposure.
package poller

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"autorespond/internal/domain"
)

// Provider is the narrow mailbox surface the poller needs.
type Provider interface {
	Name() domain.Provider
	ListCandidates(ctx context.Context) ([]string, error)
	GetMessage(ctx context.Context, id string) (domain.InboundMessage, error)
	EnsureLabel(ctx context.Context, name string) (string, error)
}

type Classifier interface {
	Classify(ctx context.Context, body string) domain.ClassificationResult
}

type Queue interface {
	Enqueue(ctx context.Context, job domain.DeliveryJob) (string, error)
}

type Ledger interface {
	Seen(provider domain.Provider, messageID string) (bool, error)
	Record(provider domain.Provider, messageID string, label domain.Label, jobID string) error
}

type Poller struct {
	provider   Provider
	classifier Classifier
	queue      Queue
	ledger     Ledger
	limiter    *rate.Limiter
	interval   time.Duration
	log        *slog.Logger
}

func New(provider Provider, classifier Classifier, queue Queue, ledger Ledger,
	interval time.Duration, rps float64, log *slog.Logger) *Poller {
	return &Poller{
		provider:   provider,
		classifier: classifier,
		queue:      queue,
		ledger:     ledger,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		interval:   interval,
		log:        log.With("component", "poller", "provider", provider.Name()),
	}
}

// Run polls until ctx is cancelled. The first cycle starts immediately; an
// in-flight cycle finishes before shutdown takes effect.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info("poller started", "interval", p.interval)

	p.cycle(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("poller stopped")
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	if err := p.limiter.Wait(ctx); err != nil {
		return
	}

	ids, err := p.provider.ListCandidates(ctx)
	if err != nil {
		p.log.Error("list candidates failed", "error", err)
		return
	}

	if len(ids) == 0 {
		p.log.Debug("no candidate messages")
		return
	}

	p.log.Info("candidates found", "count", len(ids))

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		// A failed message is skipped for the rest of the cycle; it
		// stays unlabelled and is re-observed on the next poll.
		p.process(ctx, id)
	}
}

func (p *Poller) process(ctx context.Context, id string) {
	seen, err := p.ledger.Seen(p.provider.Name(), id)
	if err != nil {
		p.log.Error("ledger check failed", "message", id, "error", err)
		return
	}
	if seen {
		p.log.Debug("message already queued", "message", id)
		return
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return
	}

	msg, err := p.provider.GetMessage(ctx, id)
	if err != nil {
		p.log.Error("fetch message failed", "message", id, "error", err)
		return
	}
	if msg.Body == "" {
		p.log.Warn("no plain-text content, skipping", "message", id)
		return
	}

	res := p.classifier.Classify(ctx, msg.Body)

	// The label must exist on the provider before the job is queued so
	// the worker never needs label-creation rights.
	if _, err := p.provider.EnsureLabel(ctx, res.Label.DisplayName()); err != nil {
		p.log.Error("label resolution failed", "message", id, "label", res.Label, "error", err)
		return
	}

	job := domain.NewDeliveryJob(msg, res)

	brokerID, err := p.queue.Enqueue(ctx, job)
	if err != nil {
		p.log.Error("enqueue failed", "message", id, "job_id", job.JobID, "error", err)
		return
	}

	if err := p.ledger.Record(p.provider.Name(), id, res.Label, job.JobID); err != nil {
		// The job is already queued; the broker will deliver it even if
		// the next cycle refetches this message.
		p.log.Error("ledger record failed", "message", id, "error", err)
	}

	p.log.Info("job enqueued",
		"message", id, "job_id", job.JobID, "broker_id", brokerID, "label", res.Label)
}
