package domain

import "context"

// RecordRepository defines the persistence contract for identifier records.
type RecordRepository interface {
	Insert(ctx context.Context, record Record) error
	Exists(ctx context.Context, value string) (bool, error)
	Get(ctx context.Context, value string) (Record, error)
	List(ctx context.Context, filter ListFilter) ([]Record, error)
	Summarize(ctx context.Context) (Summary, error)
}

// ListFilter holds optional criteria for listing records.
type ListFilter struct {
	Variant  *Variant
	Category *string
	Limit    int
	Offset   int
}

// IdentifierGenerator produces raw (undecorated) identifier strings.
type IdentifierGenerator interface {
	Generate(variant Variant) (string, error)
}

// EventPublisher defines the contract for emitting ledger events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, record Record) error
}
