// Package queue carries delivery jobs over a durable Pub/Sub topic. The
// broker owns redelivery: a nacked job comes back under the subscription's
// retry policy and dead-letters once that policy is exhausted.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cloud.google.com/go/pubsub"

	"autorespond/internal/domain"
)

type Publisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	log    *slog.Logger
}

func NewPublisher(ctx context.Context, projectID, topicID string, log *slog.Logger) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &Publisher{
		client: client,
		topic:  client.Topic(topicID),
		log:    log.With("component", "queue"),
	}, nil
}

// Enqueue publishes one delivery job and returns the broker's message id.
func (p *Publisher) Enqueue(ctx context.Context, job domain.DeliveryJob) (string, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}

	res := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"provider": string(job.Provider),
		},
	})

	id, err := res.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish job: %w", err)
	}

	p.log.Debug("job published", "job_id", job.JobID, "broker_id", id, "provider", job.Provider)
	return id, nil
}

func (p *Publisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

// Handler processes one delivery job. A returned error nacks the message so
// the broker redelivers it.
type Handler func(ctx context.Context, job domain.DeliveryJob) error

type Consumer struct {
	client         *pubsub.Client
	subscriptionID string
	maxOutstanding int
	log            *slog.Logger
}

func NewConsumer(ctx context.Context, projectID, subscriptionID string, maxOutstanding int, log *slog.Logger) (*Consumer, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &Consumer{
		client:         client,
		subscriptionID: subscriptionID,
		maxOutstanding: maxOutstanding,
		log:            log.With("component", "queue"),
	}, nil
}

// Receive claims jobs until ctx is cancelled. Cancellation drains: no new
// jobs are claimed and in-flight handlers run to completion. Payloads that
// do not decode are acked as poison, not retried.
func (c *Consumer) Receive(ctx context.Context, handler Handler) error {
	sub := c.client.Subscription(c.subscriptionID)
	sub.ReceiveSettings.MaxOutstandingMessages = c.maxOutstanding

	c.log.Info("consumer started", "subscription", c.subscriptionID)

	return sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		var job domain.DeliveryJob
		if err := json.Unmarshal(m.Data, &job); err != nil {
			c.log.Error("undecodable job payload", "broker_id", m.ID, "error", err)
			m.Ack()
			return
		}

		if err := handler(ctx, job); err != nil {
			c.log.Error("job failed, returning to broker",
				"job_id", job.JobID, "broker_id", m.ID, "provider", job.Provider, "error", err)
			m.Nack()
			return
		}

		m.Ack()
	})
}

func (c *Consumer) Close() error {
	return c.client.Close()
}
