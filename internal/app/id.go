package app

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/neomorfeo/idledger/internal/domain"
)

const (
	maxPrefixLen   = 5
	maxCategoryLen = 50
	prefixSep      = "-"
)

// normalizePrefix validates a prefix and returns its canonical upper-case form.
// An empty prefix is valid and means "no prefix".
func normalizePrefix(prefix string) (string, error) {
	if prefix == "" {
		return "", nil
	}
	if len(prefix) > maxPrefixLen {
		return "", &domain.InvalidArgumentError{Field: "prefix", Reason: "must be 5 characters or less"}
	}
	for _, r := range prefix {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return "", &domain.InvalidArgumentError{Field: "prefix", Reason: "must be alphanumeric"}
		}
	}
	return strings.ToUpper(prefix), nil
}

func validateCategory(category string) error {
	if utf8.RuneCountInString(category) > maxCategoryLen {
		return &domain.InvalidArgumentError{Field: "category", Reason: "must be 50 characters or less"}
	}
	return nil
}

// decorate prepends the prefix to a raw identifier.
func decorate(prefix, raw string) string {
	if prefix == "" {
		return raw
	}
	return prefix + prefixSep + raw
}
