package publisher

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	r "github.com/chanhduy633/checkout-service/internal/repository"
)

const eventsTopic = "checkout-events"

// messageWriter is the slice of kafka.Writer the poller needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller drains the checkout outbox into Kafka and sweeps sessions
// orphaned by a crash. Events are published at least once: a write that
// succeeds but fails to be marked processed is re-published on the next
// tick, so consumers must dedupe on checkout_id.
type OutboxPoller struct {
	tick         time.Duration
	recoveryTick time.Duration
	stuckAfter   time.Duration
	batchSize    int
	repo         r.RepoInterface
	writer       messageWriter
}

func NewOutboxPoller(repo r.RepoInterface, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  eventsTopic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		tick:         time.Second,
		recoveryTick: time.Minute,
		// Past the longest legitimate polling window; a live payment session
		// must never be swept.
		stuckAfter: 10 * time.Minute,
		batchSize:  100,
		repo:       repo,
		writer:     w,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.tick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.recoverStuckSessions(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		slog.Error("Failed to fetch outbox events", "error", err)
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			slog.Error("Failed to publish outbox event", "event_id", event.ID, "error", err)
			continue
		}
		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			slog.Error("Failed to mark outbox event as processed", "event_id", event.ID, "error", err)
			continue
		}
		slog.Debug("Published outbox event",
			"event_id", event.ID,
			"event_type", event.EventType,
			"checkout_id", event.AggregateID)
	}
}

// recoverStuckSessions settles checkouts whose commit or polling goroutine
// died with the process. The order number, if one was created, only ever
// lived in that goroutine, so these cannot be completed; they are failed
// with the reconciliation flag for support to resolve against the payment
// and order records.
func (p *OutboxPoller) recoverStuckSessions(ctx context.Context) {
	sessions, err := p.repo.GetStuckSessions(ctx, p.stuckAfter)
	if err != nil {
		slog.Error("Failed to fetch stuck sessions", "error", err)
		return
	}

	for _, session := range sessions {
		reason := "checkout interrupted before settling; manual reconciliation required"
		if err := p.repo.FailCheckoutSession(ctx, session.ID, reason, true); err != nil {
			slog.Error("Failed to settle stuck session", "checkout_id", session.ID, "error", err)
			continue
		}
		slog.Warn("Settled stuck checkout session",
			"checkout_id", session.ID,
			"status", session.Status,
			"payment_reference", session.PaymentReference)
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *r.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // checkout_id, keeps per-checkout ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
