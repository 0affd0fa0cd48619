package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/idledger/internal/domain"
)

const tracerName = "github.com/neomorfeo/idledger/internal/adapter/otel"

// TracingRepository wraps a domain.RecordRepository with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingRepository struct {
	next   domain.RecordRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.RecordRepository.
var _ domain.RecordRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.RecordRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) Insert(ctx context.Context, record domain.Record) error {
	ctx, span := r.tracer.Start(ctx, "RecordRepository.Insert",
		trace.WithAttributes(
			attribute.String("identifier.value", record.Value),
			attribute.String("identifier.variant", string(record.Variant)),
			attribute.String("identifier.category", record.Category),
		),
	)
	defer span.End()

	err := r.next.Insert(ctx, record)
	recordError(span, err)
	return err
}

func (r *TracingRepository) Exists(ctx context.Context, value string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "RecordRepository.Exists",
		trace.WithAttributes(attribute.String("identifier.value", value)),
	)
	defer span.End()

	exists, err := r.next.Exists(ctx, value)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Bool("result.exists", exists))
	}
	return exists, err
}

func (r *TracingRepository) Get(ctx context.Context, value string) (domain.Record, error) {
	ctx, span := r.tracer.Start(ctx, "RecordRepository.Get",
		trace.WithAttributes(attribute.String("identifier.value", value)),
	)
	defer span.End()

	record, err := r.next.Get(ctx, value)
	recordError(span, err)
	return record, err
}

func (r *TracingRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Record, error) {
	ctx, span := r.tracer.Start(ctx, "RecordRepository.List",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.Variant != nil {
		span.SetAttributes(attribute.String("filter.variant", string(*filter.Variant)))
	}
	if filter.Category != nil {
		span.SetAttributes(attribute.String("filter.category", *filter.Category))
	}

	records, err := r.next.List(ctx, filter)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(records)))
	}
	return records, err
}

func (r *TracingRepository) Summarize(ctx context.Context) (domain.Summary, error) {
	ctx, span := r.tracer.Start(ctx, "RecordRepository.Summarize")
	defer span.End()

	summary, err := r.next.Summarize(ctx)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.total", summary.Total))
	}
	return summary, err
}

func recordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
