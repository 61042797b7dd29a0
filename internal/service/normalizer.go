package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vanshika/ownergraph/backend/internal/domain"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// sanitizeString collapses whitespace and trims the result.
func sanitizeString(value string) string {
	value = whitespaceRegex.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// normalizeID trims an identifier and rejects empty ones.
func normalizeID(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, field)
	}
	return value, nil
}

// normalizeJurisdiction produces the upper-case code policies are keyed by.
func normalizeJurisdiction(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// normalizeAttributes trims keys and values and drops empty keys.
func normalizeAttributes(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// checkPercentage enforces the 0..100 range on an optional percentage.
func checkPercentage(field string, pct *float64) error {
	if pct == nil {
		return nil
	}
	if *pct < 0 || *pct > 100 {
		return fmt.Errorf("%w: %s %.2f must be between 0 and 100", domain.ErrInvalidInput, field, *pct)
	}
	return nil
}

// dedupe keeps the first occurrence of each string.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
