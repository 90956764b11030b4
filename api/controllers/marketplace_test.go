package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nearmarket/nearmarket-backend/api/middleware"
	"github.com/nearmarket/nearmarket-backend/internal/marketplace"
	"github.com/nearmarket/nearmarket-backend/internal/search"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
)

type testMarketplaceService struct {
	browseFn func(ctx context.Context, input marketplace.BrowseInput) (*marketplace.BrowseResult, error)
	nearbyFn func(ctx context.Context, input marketplace.NearbyInput) (*marketplace.BrowseResult, error)
}

func (s *testMarketplaceService) Browse(ctx context.Context, input marketplace.BrowseInput) (*marketplace.BrowseResult, error) {
	if s.browseFn != nil {
		return s.browseFn(ctx, input)
	}
	return &marketplace.BrowseResult{}, nil
}

func (s *testMarketplaceService) Nearby(ctx context.Context, input marketplace.NearbyInput) (*marketplace.BrowseResult, error) {
	if s.nearbyFn != nil {
		return s.nearbyFn(ctx, input)
	}
	return &marketplace.BrowseResult{}, nil
}

func testControllerLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestBrowseProductsParsesFilters(t *testing.T) {
	var got marketplace.BrowseInput
	svc := &testMarketplaceService{
		browseFn: func(_ context.Context, input marketplace.BrowseInput) (*marketplace.BrowseResult, error) {
			got = input
			return &marketplace.BrowseResult{Generation: 7}, nil
		},
	}

	url := "/api/v1/marketplace/products?q=vintage+camera&categories=electronics,cameras" +
		"&min_price_cents=1000&max_price_cents=50000&verified=true&free_shipping=true" +
		"&lat=51.5&lng=-0.12&radius_km=10&sort=price_asc&limit=20"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), "viewer-1"))

	resp := httptest.NewRecorder()
	BrowseProducts(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got.ViewerID != "viewer-1" {
		t.Fatalf("unexpected viewer %q", got.ViewerID)
	}
	if got.State.Query != "vintage camera" {
		t.Fatalf("unexpected query %q", got.State.Query)
	}
	if len(got.State.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %v", got.State.Categories)
	}
	if got.State.MinPriceCents == nil || *got.State.MinPriceCents != 1000 {
		t.Fatalf("min price not parsed: %v", got.State.MinPriceCents)
	}
	if !got.State.VerifiedOnly || !got.State.FreeShippingOnly {
		t.Fatal("toggle filters not parsed")
	}
	if got.State.UserLocation == nil || got.State.UserLocation.Lat != 51.5 {
		t.Fatalf("location not parsed: %v", got.State.UserLocation)
	}
	if got.State.RadiusKm != 10 {
		t.Fatalf("unexpected radius %v", got.State.RadiusKm)
	}
	if got.Sort != search.SortPriceAsc {
		t.Fatalf("unexpected sort %s", got.Sort)
	}
	if got.Limit != 20 {
		t.Fatalf("unexpected limit %d", got.Limit)
	}

	var envelope struct {
		Data marketplace.BrowseResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Generation != 7 {
		t.Fatalf("expected generation passthrough, got %d", envelope.Data.Generation)
	}
}

func TestBrowseProductsRejectsUnknownSort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/marketplace/products?sort=bogus", nil)
	resp := httptest.NewRecorder()
	BrowseProducts(&testMarketplaceService{}, testControllerLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestBrowseProductsRejectsBadPrice(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/marketplace/products?min_price_cents=abc", nil)
	resp := httptest.NewRecorder()
	BrowseProducts(&testMarketplaceService{}, testControllerLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestNearbyProductsRequiresCoordinates(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/marketplace/products/nearby?lat=51.5", nil)
	resp := httptest.NewRecorder()
	NearbyProducts(&testMarketplaceService{}, testControllerLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestNearbyProductsForwardsRadius(t *testing.T) {
	var got marketplace.NearbyInput
	svc := &testMarketplaceService{
		nearbyFn: func(_ context.Context, input marketplace.NearbyInput) (*marketplace.BrowseResult, error) {
			got = input
			return &marketplace.BrowseResult{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/marketplace/products/nearby?lat=51.5&lng=-0.12&radius_km=3.5&type=freebie", nil)
	resp := httptest.NewRecorder()
	NearbyProducts(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got.RadiusKm != 3.5 {
		t.Fatalf("unexpected radius %v", got.RadiusKm)
	}
	if got.ListingType == nil || *got.ListingType != "freebie" {
		t.Fatalf("listing type not forwarded: %v", got.ListingType)
	}
}
