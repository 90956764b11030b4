package search

import (
	"sort"
	"strings"
	"time"

	"github.com/nearmarket/nearmarket-backend/pkg/errors"
)

// SortKey selects the ranking criterion.
type SortKey string

const (
	SortDistance  SortKey = "distance"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
	SortRating    SortKey = "rating"
	SortNewest    SortKey = "newest"
	SortBestMatch SortKey = "best_match"
)

// IsValid reports whether the sort key is one of the supported criteria.
func (s SortKey) IsValid() bool {
	switch s {
	case SortDistance, SortPriceAsc, SortPriceDesc, SortRating, SortNewest, SortBestMatch:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (s SortKey) String() string {
	return string(s)
}

// ParseSortKey maps user input to a SortKey, defaulting to best match when the
// input is empty.
func ParseSortKey(value string) (SortKey, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return SortBestMatch, nil
	}
	key := SortKey(trimmed)
	if !key.IsValid() {
		return "", errors.New(errors.CodeValidation, "unsupported sort key").
			WithDetails(map[string]string{"sort": value})
	}
	return key, nil
}

// Best-match blend weights. Recency dominates so fresh inventory surfaces;
// proximity only contributes when the item distance is known.
const (
	weightRecency   = 0.5
	weightRating    = 0.3
	weightProximity = 0.2

	recencyHalfLifeDays = 30.0
	ratingCountCeiling  = 50.0
)

// Rank orders the page in place by the selected criterion. Items missing the
// sort field land at the end rather than breaking the comparator; ties keep
// their incoming order so identical inputs always produce identical output.
func Rank(page []Ranked, key SortKey, now time.Time) {
	switch key {
	case SortDistance:
		sort.SliceStable(page, func(i, j int) bool {
			// +Inf sorts last under ascending order naturally.
			return page[i].DistanceKm < page[j].DistanceKm
		})
	case SortPriceAsc:
		sort.SliceStable(page, func(i, j int) bool {
			return page[i].PriceCents < page[j].PriceCents
		})
	case SortPriceDesc:
		sort.SliceStable(page, func(i, j int) bool {
			return page[i].PriceCents > page[j].PriceCents
		})
	case SortRating:
		sort.SliceStable(page, func(i, j int) bool {
			if page[i].RatingAvg != page[j].RatingAvg {
				return page[i].RatingAvg > page[j].RatingAvg
			}
			return page[i].RatingCount > page[j].RatingCount
		})
	case SortNewest:
		sort.SliceStable(page, func(i, j int) bool {
			return page[i].CreatedAt.After(page[j].CreatedAt)
		})
	case SortBestMatch:
		for i := range page {
			page[i].Score = bestMatchScore(page[i], now)
		}
		sort.SliceStable(page, func(i, j int) bool {
			if page[i].Score != page[j].Score {
				return page[i].Score > page[j].Score
			}
			return page[i].CreatedAt.After(page[j].CreatedAt)
		})
	default:
		// Unknown keys leave the incoming order untouched.
	}
}

// bestMatchScore blends recency, rating and proximity into [0,1]. The
// proximity term reads as zero when the item distance is unknown so coordinate
// gaps demote rather than exclude.
func bestMatchScore(r Ranked, now time.Time) float64 {
	ageDays := now.Sub(r.CreatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	recency := 1 / (1 + ageDays/recencyHalfLifeDays)

	confidence := float64(r.RatingCount)
	if confidence > ratingCountCeiling {
		confidence = ratingCountCeiling
	}
	rating := (r.RatingAvg / 5) * (confidence / ratingCountCeiling)

	proximity := 0.0
	if r.HasDistance() && r.DistanceKm > 0 {
		proximity = 1 / (1 + r.DistanceKm)
	} else if r.HasDistance() {
		proximity = 1
	}

	return weightRecency*recency + weightRating*rating + weightProximity*proximity
}
