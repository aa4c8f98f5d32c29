package validators

import (
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/catering-backend/pkg/errors"
)

func TestSanitizeStringTrims(t *testing.T) {
	got, err := SanitizeString("lot_code", "  L-1 \n", MaxCodeLen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "L-1" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}

func TestSanitizeStringRejectsInsteadOfTruncating(t *testing.T) {
	_, err := SanitizeString("product_code", strings.Repeat("x", MaxCodeLen+1), MaxCodeLen)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// Length is measured in characters, not bytes.
	euro := strings.Repeat("€", MaxCodeLen)
	got, err := SanitizeString("product_code", euro, MaxCodeLen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != euro {
		t.Fatalf("value was altered: %q", got)
	}
}

func TestSanitizeOptional(t *testing.T) {
	got, err := SanitizeOptional("flight", nil, MaxFlightLen)
	if err != nil || got != nil {
		t.Fatalf("expected nil passthrough, got %v %v", got, err)
	}
	long := strings.Repeat("F", MaxFlightLen+1)
	if _, err := SanitizeOptional("flight", &long, MaxFlightLen); err == nil {
		t.Fatalf("expected error for long flight")
	}
}
