package search

import (
	"math"
	"strings"

	"github.com/nearmarket/nearmarket-backend/pkg/geo"
)

// Apply returns the subset of items matching every active filter dimension.
// Filters compose with logical AND in a fixed order: category, price, boolean
// toggles, delivery options, query, then radius. Each output row carries the
// computed viewer distance so ranking never recomputes it.
//
// When the state has a user location, items without coordinates are assigned
// +Inf distance and therefore never survive a finite radius.
func Apply(items []Item, state FilterState) []Ranked {
	out := make([]Ranked, 0, len(items))
	for _, item := range items {
		if !state.CategoryAllows(item.Category) {
			continue
		}
		if !priceAllows(item, state) {
			continue
		}
		if state.VerifiedOnly && !item.Verified {
			continue
		}
		if state.FeaturedOnly && !item.Featured {
			continue
		}
		if state.OnSaleOnly && !item.OnSale {
			continue
		}
		if state.FreeShippingOnly && !item.FreeShipping {
			continue
		}
		if state.FreeOnly && !item.IsFree() {
			continue
		}
		if !deliveryAllows(item, state) {
			continue
		}
		if state.HasQuery() && !queryMatches(item, state.Query) {
			continue
		}

		distance := distanceFrom(item, state)
		if state.HasLocation() && distance > state.RadiusKm {
			continue
		}

		out = append(out, Ranked{Item: item, DistanceKm: distance})
	}
	return out
}

// Items strips the computed fields so a Ranked page can be re-filtered.
func Items(ranked []Ranked) []Item {
	items := make([]Item, 0, len(ranked))
	for _, r := range ranked {
		items = append(items, r.Item)
	}
	return items
}

func priceAllows(item Item, state FilterState) bool {
	// Freebies trivially pass the minimum bound.
	if state.MinPriceCents != nil && !item.IsFree() && item.PriceCents < *state.MinPriceCents {
		return false
	}
	if state.MaxPriceCents != nil && item.PriceCents > *state.MaxPriceCents {
		return false
	}
	return true
}

// deliveryAllows passes when no delivery option is requested, or when the item
// offers at least one of the requested options.
func deliveryAllows(item Item, state FilterState) bool {
	if !state.LocalPickup && !state.Shipping && !state.Delivery {
		return true
	}
	if state.LocalPickup && item.LocalPickup {
		return true
	}
	if state.Shipping && item.Shipping {
		return true
	}
	if state.Delivery && item.Delivery {
		return true
	}
	return false
}

func queryMatches(item Item, query string) bool {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(item.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(item.Description), needle) {
		return true
	}
	for _, tag := range item.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

func distanceFrom(item Item, state FilterState) float64 {
	if !state.HasLocation() {
		return 0
	}
	if item.Location == nil {
		return math.Inf(1)
	}
	return geo.DistanceBetween(*state.UserLocation, *item.Location)
}

func isInf(v float64) bool {
	return math.IsInf(v, 1)
}
