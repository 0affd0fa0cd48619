package domain

import "time"

// Variant identifies the algorithm used to produce an identifier.
type Variant string

const (
	VariantV1        Variant = "v1"
	VariantV4        Variant = "v4"
	VariantTimestamp Variant = "timestamp"
)

// Variants lists every supported variant in display order.
var Variants = []Variant{VariantV1, VariantV4, VariantTimestamp}

// ParseVariant converts user input into a Variant.
func ParseVariant(s string) (Variant, error) {
	for _, v := range Variants {
		if string(v) == s {
			return v, nil
		}
	}
	return "", &InvalidArgumentError{
		Field:  "type",
		Reason: `must be one of "v1", "v4", "timestamp"`,
	}
}

// Event represents something that happened to the ledger.
type Event string

const (
	EventIdentifierRecorded Event = "identifier_recorded"
)

// Record is one generated identifier as stored in the ledger.
// Records are immutable once inserted.
type Record struct {
	Value     string
	Variant   Variant
	Category  string // empty means uncategorized
	Prefix    string
	CreatedAt time.Time
}

// NewRecord stamps a freshly generated value with the current UTC time.
func NewRecord(value string, variant Variant, category, prefix string) Record {
	return Record{
		Value:     value,
		Variant:   variant,
		Category:  category,
		Prefix:    prefix,
		CreatedAt: time.Now().UTC(),
	}
}

// Summary aggregates stored records. Uncategorized records count toward
// Total and ByVariant but not ByCategory.
type Summary struct {
	ByVariant  map[Variant]int
	ByCategory map[string]int
	Total      int
}

// NewSummary returns an empty summary with initialized maps.
func NewSummary() Summary {
	return Summary{
		ByVariant:  make(map[Variant]int),
		ByCategory: make(map[string]int),
	}
}
