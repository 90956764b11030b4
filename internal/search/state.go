package search

import (
	"strings"
	"unicode"

	"github.com/nearmarket/nearmarket-backend/pkg/errors"
	"github.com/nearmarket/nearmarket-backend/pkg/geo"
)

const (
	// CategoryAll is the sentinel meaning "no category narrowing".
	CategoryAll = "all"

	// DefaultRadiusKm applies when a viewer opts into location filtering
	// without choosing a radius.
	DefaultRadiusKm = 25.0

	// MinQueryLength is the minimum number of alphanumeric characters a
	// free-text query must carry before it participates in filtering.
	MinQueryLength = 3
)

// FilterState captures every filter dimension a viewer can set. All fields are
// present; unset optional bounds are nil pointers rather than omitted keys.
type FilterState struct {
	Query      string
	Categories []string

	MinPriceCents *int
	MaxPriceCents *int

	VerifiedOnly     bool
	FeaturedOnly     bool
	OnSaleOnly       bool
	FreeShippingOnly bool
	FreeOnly         bool

	UserLocation *geo.Point
	RadiusKm     float64

	LocalPickup bool
	Shipping    bool
	Delivery    bool
}

// DefaultFilterState returns the state a fresh browse session starts from.
func DefaultFilterState() FilterState {
	return FilterState{
		RadiusKm: DefaultRadiusKm,
	}
}

// HasLocation reports whether distance filtering is enabled. Radius is only
// meaningful when a user location is set.
func (s FilterState) HasLocation() bool {
	return s.UserLocation != nil
}

// CategoryAllows reports whether the category passes the selected set. An
// empty set, or a set containing the "all" sentinel, allows everything.
func (s FilterState) CategoryAllows(category string) bool {
	if len(s.Categories) == 0 {
		return true
	}
	for _, c := range s.Categories {
		if strings.EqualFold(c, CategoryAll) {
			return true
		}
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// HasPriceBounds reports whether either price bound is set.
func (s FilterState) HasPriceBounds() bool {
	return s.MinPriceCents != nil || s.MaxPriceCents != nil
}

// HasQuery reports whether the free-text query participates in filtering.
func (s FilterState) HasQuery() bool {
	return alphanumericCount(s.Query) >= MinQueryLength
}

// ValidateQuery enforces the minimum-length gate on free-text queries. Queries
// with fewer than MinQueryLength alphanumeric characters never reach the
// search pipeline; the caller surfaces the returned validation error instead.
// An empty query is valid: it means "no query filtering".
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if alphanumericCount(query) < MinQueryLength {
		return errors.New(errors.CodeValidation, "search query must contain at least 3 letters or digits")
	}
	return nil
}

// Validate checks the whole filter state for inconsistencies.
func (s FilterState) Validate() error {
	if err := ValidateQuery(s.Query); err != nil {
		return err
	}
	if s.MinPriceCents != nil && *s.MinPriceCents < 0 {
		return errors.New(errors.CodeValidation, "minimum price cannot be negative")
	}
	if s.MaxPriceCents != nil && *s.MaxPriceCents < 0 {
		return errors.New(errors.CodeValidation, "maximum price cannot be negative")
	}
	if s.MinPriceCents != nil && s.MaxPriceCents != nil && *s.MinPriceCents > *s.MaxPriceCents {
		return errors.New(errors.CodeValidation, "minimum price cannot exceed maximum price")
	}
	if s.RadiusKm < 0 {
		return errors.New(errors.CodeValidation, "radius cannot be negative")
	}
	return nil
}

func alphanumericCount(s string) int {
	count := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			count++
		}
	}
	return count
}
