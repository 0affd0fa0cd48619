// Package idgen produces the raw identifier strings for each variant.
//
// The timestamp variant has the layout <MICROS>-<RAND>: MICROS is the number
// of microseconds since the Unix epoch in upper-case hex without padding, and
// RAND is four random bytes as eight upper-case hex digits.
package idgen

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/neomorfeo/idledger/internal/domain"
)

// Compile-time check: Generator implements domain.IdentifierGenerator.
var _ domain.IdentifierGenerator = (*Generator)(nil)

// Generator implements domain.IdentifierGenerator.
type Generator struct {
	now  func() time.Time
	rand io.Reader
}

// New creates a generator backed by the wall clock and crypto/rand.
func New() *Generator {
	return &Generator{
		now:  time.Now,
		rand: rand.Reader,
	}
}

// NewWithSource creates a generator with an explicit clock and random source
// for the timestamp variant. UUID variants always use google/uuid's sources.
func NewWithSource(now func() time.Time, random io.Reader) *Generator {
	return &Generator{now: now, rand: random}
}

// Generate returns a new identifier of the requested variant.
func (g *Generator) Generate(variant domain.Variant) (string, error) {
	switch variant {
	case domain.VariantV1:
		id, err := uuid.NewUUID()
		if err != nil {
			return "", fmt.Errorf("generate uuid1: %w", err)
		}
		return id.String(), nil
	case domain.VariantV4:
		id, err := uuid.NewRandom()
		if err != nil {
			return "", fmt.Errorf("generate uuid4: %w", err)
		}
		return id.String(), nil
	case domain.VariantTimestamp:
		return g.timestamp()
	default:
		return "", &domain.InvalidArgumentError{
			Field:  "type",
			Reason: fmt.Sprintf("unsupported variant %q", variant),
		}
	}
}

func (g *Generator) timestamp() (string, error) {
	b := make([]byte, 4)
	if _, err := io.ReadFull(g.rand, b); err != nil {
		return "", fmt.Errorf("generate timestamp id: %w", err)
	}
	micros := g.now().UnixMicro()
	return fmt.Sprintf("%X-%X", micros, b), nil
}
