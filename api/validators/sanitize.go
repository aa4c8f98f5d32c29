package validators

import (
	"fmt"
	"strings"
	"unicode/utf8"

	pkgerrors "github.com/angelmondragon/catering-backend/pkg/errors"
)

// Column widths of the inventory tables, in characters.
const (
	MaxCodeLen   = 55
	MaxNameLen   = 120
	MaxFlightLen = 40
)

// SanitizeString trims input and rejects it when it is longer than maxLen
// characters. Values are never shortened.
func SanitizeString(field, input string, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && utf8.RuneCountInString(trimmed) > maxLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be at most %d characters", field, maxLen)).
			WithDetails(map[string]string{field: fmt.Sprintf("must be at most %d", maxLen)})
	}
	return trimmed, nil
}

// SanitizeOptional applies SanitizeString to a present value.
func SanitizeOptional(field string, input *string, maxLen int) (*string, error) {
	if input == nil {
		return nil, nil
	}
	value, err := SanitizeString(field, *input, maxLen)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
