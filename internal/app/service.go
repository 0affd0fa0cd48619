package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neomorfeo/idledger/internal/domain"
)

// DefaultMaxAttempts bounds regeneration when a value is already stored.
const DefaultMaxAttempts = 3

// GenerateRequest describes one identifier to produce.
type GenerateRequest struct {
	Variant  domain.Variant
	Category string
	Prefix   string
}

// LedgerService generates identifiers and records them in the ledger.
type LedgerService struct {
	repo        domain.RecordRepository
	generator   domain.IdentifierGenerator
	publisher   domain.EventPublisher
	maxAttempts int
	logger      *slog.Logger
}

// NewLedgerService creates a service with the given adapters. A maxAttempts
// below 1 falls back to DefaultMaxAttempts; a nil logger discards output.
func NewLedgerService(repo domain.RecordRepository, generator domain.IdentifierGenerator, publisher domain.EventPublisher, maxAttempts int, logger *slog.Logger) *LedgerService {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LedgerService{
		repo:        repo,
		generator:   generator,
		publisher:   publisher,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Generate produces, deduplicates and persists a new identifier.
//
// A value that is already stored is discarded and regenerated, up to the
// configured number of attempts; after that a *domain.DuplicateIdentifierError
// is returned. The insert itself also guards against a concurrent writer
// storing the same value between the check and the insert.
func (s *LedgerService) Generate(ctx context.Context, req GenerateRequest) (domain.Record, error) {
	if _, err := domain.ParseVariant(string(req.Variant)); err != nil {
		return domain.Record{}, err
	}
	if err := validateCategory(req.Category); err != nil {
		return domain.Record{}, err
	}
	prefix, err := normalizePrefix(req.Prefix)
	if err != nil {
		return domain.Record{}, err
	}

	var last string
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		raw, err := s.generator.Generate(req.Variant)
		if err != nil {
			return domain.Record{}, fmt.Errorf("generating %s identifier: %w", req.Variant, err)
		}
		value := decorate(prefix, raw)
		last = value

		exists, err := s.repo.Exists(ctx, value)
		if err != nil {
			return domain.Record{}, fmt.Errorf("checking duplicate: %w", err)
		}
		if exists {
			s.logger.WarnContext(ctx, "duplicate identifier, regenerating",
				"value", value, "variant", req.Variant, "attempt", attempt)
			continue
		}

		record := domain.NewRecord(value, req.Variant, req.Category, prefix)
		if err := s.repo.Insert(ctx, record); err != nil {
			var dupErr *domain.DuplicateIdentifierError
			if errors.As(err, &dupErr) {
				s.logger.WarnContext(ctx, "identifier stored concurrently, regenerating",
					"value", value, "variant", req.Variant, "attempt", attempt)
				continue
			}
			return domain.Record{}, fmt.Errorf("recording identifier: %w", err)
		}

		if err := s.publisher.Publish(ctx, domain.EventIdentifierRecorded, record); err != nil {
			return domain.Record{}, fmt.Errorf("publishing %q event: %w", domain.EventIdentifierRecorded, err)
		}

		s.logger.InfoContext(ctx, "generated identifier",
			"value", record.Value, "variant", record.Variant, "category", record.Category)
		return record, nil
	}

	return domain.Record{}, &domain.DuplicateIdentifierError{Value: last, Attempts: s.maxAttempts}
}

// Check reports whether a value is already recorded.
func (s *LedgerService) Check(ctx context.Context, value string) (bool, error) {
	if value == "" {
		return false, &domain.InvalidArgumentError{Field: "value", Reason: "must not be empty"}
	}
	return s.repo.Exists(ctx, value)
}

// Get returns a stored record by value.
func (s *LedgerService) Get(ctx context.Context, value string) (domain.Record, error) {
	return s.repo.Get(ctx, value)
}

// List returns records matching the given filter.
func (s *LedgerService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Record, error) {
	return s.repo.List(ctx, filter)
}

// Stats returns counts of stored records by variant and category.
func (s *LedgerService) Stats(ctx context.Context) (domain.Summary, error) {
	return s.repo.Summarize(ctx)
}
