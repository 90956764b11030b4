package search

import "strings"

// EmptyReason labels the dominant filter dimension behind an empty result.
type EmptyReason string

const (
	EmptyReasonQuery    EmptyReason = "query"
	EmptyReasonCategory EmptyReason = "category"
	EmptyReasonPrice    EmptyReason = "price"
	EmptyReasonFreeOnly EmptyReason = "free_only"
	EmptyReasonGeneric  EmptyReason = "generic"
)

// EmptyResult explains an empty page to the viewer. The dominant dimension is
// picked in a fixed priority order: query, then category, then price bounds,
// then the free-only toggle, else a generic fallback.
func EmptyResult(state FilterState) (EmptyReason, string) {
	switch {
	case state.HasQuery():
		return EmptyReasonQuery, "No listings match your search. Try different keywords."
	case categoryNarrowed(state):
		return EmptyReasonCategory, "No listings in this category right now. Try browsing all categories."
	case state.HasPriceBounds():
		return EmptyReasonPrice, "No listings in this price range. Try widening the range."
	case state.FreeOnly:
		return EmptyReasonFreeOnly, "No free listings available right now. Check back soon."
	default:
		return EmptyReasonGeneric, "No listings found. Try adjusting your filters."
	}
}

func categoryNarrowed(state FilterState) bool {
	if len(state.Categories) == 0 {
		return false
	}
	for _, c := range state.Categories {
		if strings.EqualFold(c, CategoryAll) {
			return false
		}
	}
	return true
}
