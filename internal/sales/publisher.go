package sales

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher delivers lifecycle events to an outside sink.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

// LogPublisher renders each event as a log line.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a publisher writing to logger.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	fields := []zap.Field{
		zap.String("event", string(e.Kind())),
		zap.String("sale_id", e.SaleID().String()),
		zap.Time("occurred_at", e.OccurredAt()),
	}
	if itemID := ItemIDOf(e); itemID != uuid.Nil {
		fields = append(fields, zap.String("item_id", itemID.String()))
	}
	p.logger.Info(e.String(), fields...)
	return nil
}

// MultiPublisher hands every event to each of its publishers in order.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
