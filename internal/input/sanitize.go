// Package input converts untrusted request fields into typed, bounded values.
// All functions are pure; rejection is reported as shared.ValidationError so
// handlers can map it to a 400-class response.
package input

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/stockdesk/stockdesk/internal/shared"
)

// identifierPattern is the allow-list for lookup keys such as SKU item codes
// and inventory tag IDs.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

const maxIdentifierLen = 64

// SanitizeString trims whitespace, strips control characters and truncates
// the result to maxLen runes.
func SanitizeString(raw string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	cleaned = strings.TrimSpace(cleaned)
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

// RequireString sanitizes raw and fails when the result is empty.
func RequireString(field, raw string, maxLen int) (string, error) {
	cleaned := SanitizeString(raw, maxLen)
	if cleaned == "" {
		return "", shared.NewValidationError(field, "must not be empty")
	}
	return cleaned, nil
}

// ParseInt parses numeric text and enforces a lower bound.
func ParseInt(field, raw string, min int) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, shared.NewValidationError(field, "must be a whole number")
	}
	if value < min {
		return 0, shared.NewValidationError(field, "below minimum "+strconv.Itoa(min))
	}
	return value, nil
}

// ParseFloat parses numeric text and enforces a lower bound.
func ParseFloat(field, raw string, min float64) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, shared.NewValidationError(field, "must be numeric")
	}
	if value < min {
		return 0, shared.NewValidationError(field, "below minimum")
	}
	return value, nil
}

// ValidateIdentifier enforces the allow-listed character class for lookup
// keys. The value is sanitized first so trailing whitespace does not reject
// otherwise valid keys.
func ValidateIdentifier(field, raw string) (string, error) {
	cleaned := SanitizeString(raw, maxIdentifierLen)
	if cleaned == "" {
		return "", shared.NewValidationError(field, "must not be empty")
	}
	if !identifierPattern.MatchString(cleaned) {
		return "", shared.NewValidationError(field, "contains invalid characters")
	}
	return cleaned, nil
}

// ValidateItemCode validates a SKU item code.
func ValidateItemCode(raw string) (string, error) {
	return ValidateIdentifier("item_code", raw)
}

// ValidateTagID validates an inventory tag ID.
func ValidateTagID(raw string) (string, error) {
	return ValidateIdentifier("tag_id", raw)
}
