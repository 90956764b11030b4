package search

import "testing"

func TestEmptyResultPriority(t *testing.T) {
	t.Run("queryWinsOverEverything", func(t *testing.T) {
		state := DefaultFilterState()
		state.Query = "camera"
		state.Categories = []string{"electronics"}
		state.MinPriceCents = intPtr(100)
		state.FreeOnly = true
		reason, msg := EmptyResult(state)
		if reason != EmptyReasonQuery {
			t.Fatalf("expected query reason, got %s", reason)
		}
		if msg == "" {
			t.Fatal("expected a user-facing message")
		}
	})

	t.Run("categoryBeforePrice", func(t *testing.T) {
		state := DefaultFilterState()
		state.Categories = []string{"electronics"}
		state.MaxPriceCents = intPtr(100)
		reason, _ := EmptyResult(state)
		if reason != EmptyReasonCategory {
			t.Fatalf("expected category reason, got %s", reason)
		}
	})

	t.Run("allSentinelDoesNotCountAsCategory", func(t *testing.T) {
		state := DefaultFilterState()
		state.Categories = []string{"all"}
		state.MaxPriceCents = intPtr(100)
		reason, _ := EmptyResult(state)
		if reason != EmptyReasonPrice {
			t.Fatalf("expected price reason, got %s", reason)
		}
	})

	t.Run("freeOnlyBeforeGeneric", func(t *testing.T) {
		state := DefaultFilterState()
		state.FreeOnly = true
		reason, _ := EmptyResult(state)
		if reason != EmptyReasonFreeOnly {
			t.Fatalf("expected free_only reason, got %s", reason)
		}
	})

	t.Run("genericFallback", func(t *testing.T) {
		state := DefaultFilterState()
		reason, _ := EmptyResult(state)
		if reason != EmptyReasonGeneric {
			t.Fatalf("expected generic reason, got %s", reason)
		}
	})

	t.Run("shortQueryDoesNotClaimQueryReason", func(t *testing.T) {
		state := DefaultFilterState()
		state.Query = "ab"
		reason, _ := EmptyResult(state)
		if reason != EmptyReasonGeneric {
			t.Fatalf("expected generic reason for sub-gate query, got %s", reason)
		}
	})
}
