package logging

import (
	"context"
	"log/slog"

	"github.com/neomorfeo/idledger/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// Publisher records ledger events as info-level log lines.
type Publisher struct {
	logger *slog.Logger
}

// NewPublisher returns a publisher logging through logger; a nil logger
// discards events.
func NewPublisher(logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Publisher{logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, event domain.Event, record domain.Record) error {
	p.logger.InfoContext(ctx, "event",
		"event", event,
		"value", record.Value,
		"variant", record.Variant,
		"category", record.Category,
	)
	return nil
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.Event, domain.Record) error { return nil }
