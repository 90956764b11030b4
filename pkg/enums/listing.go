package enums

import "fmt"

// ListingType represents the listing_type enum in Postgres.
type ListingType string

const (
	ListingTypeSale    ListingType = "sale"
	ListingTypeBarter  ListingType = "barter"
	ListingTypeFreebie ListingType = "freebie"
)

var validListingTypes = []ListingType{
	ListingTypeSale,
	ListingTypeBarter,
	ListingTypeFreebie,
}

// String implements fmt.Stringer.
func (l ListingType) String() string {
	return string(l)
}

// IsValid reports whether the value is a known ListingType.
func (l ListingType) IsValid() bool {
	for _, candidate := range validListingTypes {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseListingType converts raw input into a ListingType.
func ParseListingType(value string) (ListingType, error) {
	for _, candidate := range validListingTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing type %q", value)
}

// ListingStatus captures the listing publication lifecycle.
type ListingStatus string

const (
	ListingStatusDraft    ListingStatus = "draft"
	ListingStatusActive   ListingStatus = "active"
	ListingStatusSold     ListingStatus = "sold"
	ListingStatusArchived ListingStatus = "archived"
)

var validListingStatuses = []ListingStatus{
	ListingStatusDraft,
	ListingStatusActive,
	ListingStatusSold,
	ListingStatusArchived,
}

// String implements fmt.Stringer.
func (l ListingStatus) String() string {
	return string(l)
}

// IsValid reports whether the value is a known ListingStatus.
func (l ListingStatus) IsValid() bool {
	for _, candidate := range validListingStatuses {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseListingStatus converts raw input into a ListingStatus.
func ParseListingStatus(value string) (ListingStatus, error) {
	for _, candidate := range validListingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing status %q", value)
}
