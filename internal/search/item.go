package search

import (
	"time"

	"github.com/google/uuid"

	"github.com/nearmarket/nearmarket-backend/pkg/enums"
	"github.com/nearmarket/nearmarket-backend/pkg/geo"
)

// Item is the filter/rank view of a listing. It carries only the fields the
// pipeline reads so callers can build it from any storage shape.
type Item struct {
	ID          uuid.UUID
	Title       string
	Description string
	Category    string
	ListingType enums.ListingType
	PriceCents  int

	Verified     bool
	Featured     bool
	OnSale       bool
	FreeShipping bool

	LocalPickup bool
	Shipping    bool
	Delivery    bool

	Location *geo.Point

	RatingAvg   float64
	RatingCount int

	Tags      []string
	CreatedAt time.Time
}

// IsFree reports whether the item costs nothing, either by type or by price.
func (i Item) IsFree() bool {
	return i.ListingType == enums.ListingTypeFreebie || i.PriceCents == 0
}

// Ranked augments an Item with the per-request computed fields. It is
// recomputed on every pass and never persisted.
type Ranked struct {
	Item

	// DistanceKm is +Inf when the viewer has a location but the item has no
	// coordinates. It is zero when distance filtering is disabled.
	DistanceKm float64

	// Score is the blended best-match score, populated by Rank when the
	// best-match sort is selected.
	Score float64
}

// HasDistance reports whether DistanceKm holds a usable finite value.
func (r Ranked) HasDistance() bool {
	return !isInf(r.DistanceKm)
}
