// Package events publishes the interactions of placed orders to the real-time event
// stream. Publishing is best effort: order placement never observes its failures.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"example.com/personalize-go/internal/metrics"
	"example.com/personalize-go/internal/personalize"
	"example.com/personalize-go/internal/shop"
)

// InteractionSource loads the resolvable lines of one order.
type InteractionSource interface {
	OrderInteractions(ctx context.Context, orderID int64) ([]shop.OrderInteraction, error)
}

// Sender delivers one batch to the event stream.
type Sender interface {
	Send(ctx context.Context, b personalize.EventBatch) error
}

// Config holds the publisher settings.
type Config struct {
	TrackingID string
	EventType  string
	// Timeout bounds one publish, store query included.
	Timeout time.Duration
	// Location interprets naive store timestamps.
	Location *time.Location

	// FailureThreshold consecutive failures open the breaker for OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// DefaultConfig returns production defaults for trackingID.
func DefaultConfig(trackingID, eventType string) Config {
	return Config{
		TrackingID:       trackingID,
		EventType:        eventType,
		Timeout:          3 * time.Second,
		Location:         time.UTC,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// Publisher turns a placed order into one event batch.
type Publisher struct {
	source  InteractionSource
	sender  Sender
	cfg     Config
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *slog.Logger
}

// NewPublisher wires a publisher; sends go through a circuit breaker so a failing
// event stream stops costing checkout latency.
func NewPublisher(source InteractionSource, sender Sender, cfg Config, logger *slog.Logger) *Publisher {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	p := &Publisher{source: source, sender: sender, cfg: cfg, logger: logger}
	p.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "personalize-events",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("event stream breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return p
}

// BuildBatch derives the batch of an order: the first resolved customer is the user,
// the order id is the session, and every line is one event. ok is false when no
// line resolved to a customer.
func (p *Publisher) BuildBatch(orderID int64, lines []shop.OrderInteraction) (personalize.EventBatch, bool, error) {
	if len(lines) == 0 {
		return personalize.EventBatch{}, false, nil
	}
	batch := personalize.EventBatch{
		TrackingID: p.cfg.TrackingID,
		EventType:  p.cfg.EventType,
		UserID:     strconv.FormatInt(lines[0].CustomerID, 10),
		SessionID:  strconv.FormatInt(orderID, 10),
		Events:     make([]personalize.Event, 0, len(lines)),
	}
	for _, line := range lines {
		sentAt, err := shop.ParseTimestamp(line.CreatedAt, p.cfg.Location)
		if err != nil {
			return personalize.EventBatch{}, false, fmt.Errorf("order %d line timestamp: %w", orderID, err)
		}
		batch.Events = append(batch.Events, personalize.Event{
			ItemID: strconv.FormatInt(line.ProductID, 10),
			SentAt: time.Unix(sentAt.Unix(), 0).UTC(),
		})
	}
	return batch, true, nil
}

// Publish sends the interactions of orderID. An order with no resolvable line is not
// an error. Errors are returned so callers other than checkout can observe them.
func (p *Publisher) Publish(ctx context.Context, orderID int64) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	lines, err := p.source.OrderInteractions(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %d interactions: %w", orderID, err)
	}
	batch, ok, err := p.BuildBatch(orderID, lines)
	if err != nil {
		return err
	}
	if !ok {
		metrics.RecordPublish(metrics.OutcomeSkipped)
		p.logger.Debug("order has no customer interactions", "order_id", orderID)
		return nil
	}
	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.sender.Send(ctx, batch)
	})
	if err != nil {
		return fmt.Errorf("publish order %d: %w", orderID, err)
	}
	metrics.RecordPublish(metrics.OutcomeSuccess)
	p.logger.Info("order interactions published", "order_id", orderID, "user_id", batch.UserID, "events", len(batch.Events))
	return nil
}

// AfterPlace publishes orderID and swallows every failure, panics included, so the
// surrounding checkout is never affected.
func (p *Publisher) AfterPlace(ctx context.Context, orderID int64) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordPublish(metrics.OutcomeFailure)
			p.logger.Error("interaction publish panicked", "order_id", orderID, "panic", r)
		}
	}()
	err := p.Publish(ctx, orderID)
	if err == nil {
		return
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.RecordPublish(metrics.OutcomeBreakerOpen)
	} else {
		metrics.RecordPublish(metrics.OutcomeFailure)
	}
	p.logger.Warn("interaction publish failed", "order_id", orderID, "error", err)
}
