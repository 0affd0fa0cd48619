// Package bootstrap wires the ledger's adapters into a ready service.
// Both the CLI and the daemon acquire a Stack at start and Close it on
// every exit path.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	otelAdapter "github.com/neomorfeo/idledger/internal/adapter/otel"
	riverAdapter "github.com/neomorfeo/idledger/internal/adapter/river"

	"github.com/neomorfeo/idledger/internal/adapter/idgen"
	"github.com/neomorfeo/idledger/internal/adapter/logging"
	"github.com/neomorfeo/idledger/internal/adapter/sqlite"
	"github.com/neomorfeo/idledger/internal/app"
	"github.com/neomorfeo/idledger/internal/config"
	"github.com/neomorfeo/idledger/internal/domain"
)

// Stack holds the acquired resources behind a LedgerService.
type Stack struct {
	Service *app.LedgerService
	// River is non-nil when events go to the River audit outbox.
	River *riverAdapter.Client

	repo      *sqlite.RecordRepository
	providers *otelAdapter.Providers
}

// Open sets up telemetry, opens and migrates the database, and builds the
// service. A nil generator means idgen.New(). On error everything acquired
// so far is released.
func Open(ctx context.Context, cfg config.Config, otelCfg otelAdapter.Config, logger *slog.Logger, generator domain.IdentifierGenerator) (*Stack, error) {
	if generator == nil {
		generator = idgen.New()
	}

	providers, err := otelAdapter.Setup(ctx, otelCfg)
	if err != nil {
		return nil, fmt.Errorf("otel: %w", err)
	}

	db, err := otelAdapter.OpenDB(cfg.DatabasePath)
	if err != nil {
		_ = providers.Shutdown(ctx)
		var storageErr *domain.StorageError
		if !errors.As(err, &storageErr) {
			err = &domain.StorageError{Op: "opening database", Err: err}
		}
		return nil, err
	}

	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		_ = db.Close()
		_ = providers.Shutdown(ctx)
		return nil, err
	}

	s := &Stack{repo: repo, providers: providers}

	var (
		store     domain.RecordRepository = repo
		publisher domain.EventPublisher
	)
	switch cfg.Events {
	case config.EventsRiver:
		client, err := riverAdapter.Setup(ctx, repo.DB(), logger)
		if err != nil {
			_ = s.Close(ctx)
			return nil, &domain.StorageError{Op: "setting up audit outbox", Err: err}
		}
		s.River = client
		// The audit job is committed with the record itself.
		store = riverAdapter.NewOutboxRepository(repo, client)
		publisher = logging.NopPublisher{}
	case config.EventsNone:
		publisher = logging.NopPublisher{}
	default:
		publisher = logging.NewPublisher(logger)
	}

	s.Service = app.NewLedgerService(
		otelAdapter.NewTracingRepository(store),
		generator,
		otelAdapter.NewTracingPublisher(publisher),
		cfg.MaxAttempts,
		logger,
	)

	return s, nil
}

// Close releases the database and flushes telemetry.
func (s *Stack) Close(ctx context.Context) error {
	var errs []error
	if err := s.repo.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	if err := s.providers.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
