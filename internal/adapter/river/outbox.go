package river

import (
	"context"
	"database/sql"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/idledger/internal/adapter/sqlite"
	"github.com/neomorfeo/idledger/internal/domain"
)

// Compile-time check: OutboxRepository implements domain.RecordRepository.
var _ domain.RecordRepository = (*OutboxRepository)(nil)

// AuditJobArgs carries a snapshot of a recorded identifier into the audit
// outbox. River serializes it as JSON into its job table, in the same SQLite
// file as the ledger itself.
type AuditJobArgs struct {
	Event     string `json:"event"`
	Value     string `json:"value"`
	Variant   string `json:"variant"`
	Category  string `json:"category,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (AuditJobArgs) Kind() string { return "identifier.recorded" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// OutboxRepository writes each record and its audit job in one transaction:
// either both are committed or neither is. Reads go straight to the
// underlying ledger.
type OutboxRepository struct {
	*sqlite.RecordRepository
	client *Client
}

// NewOutboxRepository wraps repo so inserts also enqueue an audit job on client.
func NewOutboxRepository(repo *sqlite.RecordRepository, client *Client) *OutboxRepository {
	return &OutboxRepository{RecordRepository: repo, client: client}
}

func (o *OutboxRepository) Insert(ctx context.Context, rec domain.Record) error {
	tx, err := o.DB().BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "beginning insert", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if err := o.InsertTx(ctx, tx, rec); err != nil {
		return err
	}

	if _, err := o.client.InsertTx(ctx, tx, auditArgs(domain.EventIdentifierRecorded, rec), nil); err != nil {
		return &domain.StorageError{Op: "enqueuing audit job", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: "committing insert", Err: err}
	}
	return nil
}

func auditArgs(event domain.Event, rec domain.Record) AuditJobArgs {
	return AuditJobArgs{
		Event:     string(event),
		Value:     rec.Value,
		Variant:   string(rec.Variant),
		Category:  rec.Category,
		Prefix:    rec.Prefix,
		CreatedAt: rec.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000Z"),
	}
}
