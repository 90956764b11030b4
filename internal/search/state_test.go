package search

import (
	"testing"

	pkgerrors "github.com/nearmarket/nearmarket-backend/pkg/errors"
)

func TestValidateQueryGate(t *testing.T) {
	t.Run("emptyIsValid", func(t *testing.T) {
		if err := ValidateQuery(""); err != nil {
			t.Fatalf("empty query must be valid, got %v", err)
		}
		if err := ValidateQuery("   "); err != nil {
			t.Fatalf("whitespace query must be valid, got %v", err)
		}
	})

	t.Run("tooShortRejected", func(t *testing.T) {
		for _, q := range []string{"a", "ab", "a-b", "!!"} {
			err := ValidateQuery(q)
			if err == nil {
				t.Fatalf("expected validation error for %q", q)
			}
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code for %q, got %v", q, err)
			}
		}
	})

	t.Run("threeAlphanumericAccepted", func(t *testing.T) {
		for _, q := range []string{"abc", "a1c", "ab c", "a-b-c"} {
			if err := ValidateQuery(q); err != nil {
				t.Fatalf("expected %q to pass the gate, got %v", q, err)
			}
		}
	})
}

func TestFilterStateValidate(t *testing.T) {
	t.Run("defaultsAreValid", func(t *testing.T) {
		if err := DefaultFilterState().Validate(); err != nil {
			t.Fatalf("default state must validate, got %v", err)
		}
	})

	t.Run("invertedPriceRange", func(t *testing.T) {
		state := DefaultFilterState()
		state.MinPriceCents = intPtr(500)
		state.MaxPriceCents = intPtr(100)
		if err := state.Validate(); err == nil {
			t.Fatal("expected error for min > max")
		}
	})

	t.Run("negativeRadius", func(t *testing.T) {
		state := DefaultFilterState()
		state.RadiusKm = -1
		if err := state.Validate(); err == nil {
			t.Fatal("expected error for negative radius")
		}
	})
}

func TestCategoryAllows(t *testing.T) {
	state := DefaultFilterState()
	state.Categories = []string{"Electronics"}
	if !state.CategoryAllows("electronics") {
		t.Fatal("category match must be case-insensitive")
	}
	if state.CategoryAllows("furniture") {
		t.Fatal("unselected category must not pass")
	}
}
