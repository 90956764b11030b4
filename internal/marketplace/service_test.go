package marketplace

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nearmarket/nearmarket-backend/internal/listings"
	"github.com/nearmarket/nearmarket-backend/internal/search"
	"github.com/nearmarket/nearmarket-backend/pkg/config"
	"github.com/nearmarket/nearmarket-backend/pkg/db/models"
	"github.com/nearmarket/nearmarket-backend/pkg/enums"
	pkgerrors "github.com/nearmarket/nearmarket-backend/pkg/errors"
	"github.com/nearmarket/nearmarket-backend/pkg/geo"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
	"github.com/nearmarket/nearmarket-backend/pkg/pagination"
)

type stubRepo struct {
	rows []models.Listing
	err  error
	last listings.CandidateQuery
}

func (s *stubRepo) CreateListing(context.Context, *models.Listing) (*models.Listing, error) {
	return nil, errors.New("not implemented")
}
func (s *stubRepo) UpdateListing(context.Context, *models.Listing) (*models.Listing, error) {
	return nil, errors.New("not implemented")
}
func (s *stubRepo) DeleteListing(context.Context, uuid.UUID) error { return errors.New("not implemented") }
func (s *stubRepo) FindByID(context.Context, uuid.UUID) (*models.Listing, error) {
	return nil, errors.New("not implemented")
}
func (s *stubRepo) ListBySeller(context.Context, uuid.UUID, pagination.Params) ([]models.Listing, error) {
	return nil, errors.New("not implemented")
}

func (s *stubRepo) SearchCandidates(_ context.Context, query listings.CandidateQuery) ([]models.Listing, error) {
	s.last = query
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

type stubGenerations struct {
	mu      sync.Mutex
	current int64
	// bumpDuring simulates a newer request racing in mid-flight.
	bumpAfterNext bool
}

func (s *stubGenerations) NextBrowseGeneration(_ context.Context, _ string, _ time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current++
	mine := s.current
	if s.bumpAfterNext {
		s.current++
	}
	return mine, nil
}

func (s *stubGenerations) BrowseGeneration(_ context.Context, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, nil
}

type stubRecorder struct {
	events []SearchEvent
}

func (s *stubRecorder) RecordSearch(_ context.Context, event SearchEvent) {
	s.events = append(s.events, event)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func listingRow(title, category string, priceCents int, lat, lng *float64) models.Listing {
	return models.Listing{
		ID:          uuid.New(),
		SellerID:    uuid.New(),
		Title:       title,
		Category:    category,
		ListingType: enums.ListingTypeSale,
		Status:      enums.ListingStatusActive,
		PriceCents:  priceCents,
		Currency:    "USD",
		Lat:         lat,
		Lng:         lng,
		CreatedAt:   time.Now(),
	}
}

func float64Ptr(v float64) *float64 { return &v }
func intPtr(v int) *int             { return &v }

func newBrowseService(t *testing.T, repo listings.ListingRepository, gens Generations, rec SearchRecorder) Service {
	t.Helper()
	svc, err := NewService(repo, gens, rec, nil, config.SearchConfig{
		DefaultRadiusKm: 25,
		MaxRadiusKm:     500,
		MinQueryLength:  3,
		MaxPageSize:     100,
	}, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestBrowseRadiusEndToEnd(t *testing.T) {
	near := listingRow("near", "misc", 100, float64Ptr(51.52), float64Ptr(-0.10))
	far := listingRow("far", "misc", 100, float64Ptr(51.95), float64Ptr(-0.12))
	repo := &stubRepo{rows: []models.Listing{far, near}}
	svc := newBrowseService(t, repo, nil, nil)

	state := search.DefaultFilterState()
	state.UserLocation = &geo.Point{Lat: 51.5, Lng: -0.12}
	state.RadiusKm = 5

	result, err := svc.Browse(context.Background(), BrowseInput{
		ViewerID: "viewer-1",
		State:    state,
		Sort:     search.SortDistance,
	})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if len(result.Products) != 1 {
		t.Fatalf("expected only the 3km listing, got %d", len(result.Products))
	}
	if result.Products[0].Title != "near" {
		t.Fatalf("expected near first, got %s", result.Products[0].Title)
	}
	if result.Products[0].DistanceKm == nil || *result.Products[0].DistanceKm > 5 {
		t.Fatalf("expected distance within radius, got %+v", result.Products[0].DistanceKm)
	}
}

func TestBrowsePriceScenario(t *testing.T) {
	cheap := listingRow("cheap", "electronics", 5000, nil, nil)
	pricey := listingRow("pricey", "electronics", 20000, nil, nil)
	repo := &stubRepo{rows: []models.Listing{cheap, pricey}}
	svc := newBrowseService(t, repo, nil, nil)

	state := search.DefaultFilterState()
	state.Categories = []string{"electronics"}
	state.MinPriceCents = intPtr(1000)
	state.MaxPriceCents = intPtr(10000)

	result, err := svc.Browse(context.Background(), BrowseInput{State: state, Sort: search.SortPriceAsc})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if len(result.Products) != 1 || result.Products[0].Title != "cheap" {
		t.Fatalf("expected only the in-range listing, got %+v", result.Products)
	}
}

func TestBrowseQueryGate(t *testing.T) {
	repo := &stubRepo{}
	svc := newBrowseService(t, repo, nil, nil)

	state := search.DefaultFilterState()
	state.Query = "ab"

	_, err := svc.Browse(context.Background(), BrowseInput{State: state})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for short query, got %v", err)
	}

	state.Query = "abc"
	if _, err := svc.Browse(context.Background(), BrowseInput{State: state}); err != nil {
		t.Fatalf("3-char query must search: %v", err)
	}
	if repo.last.Query != "abc" {
		t.Fatalf("expected query forwarded to repository, got %q", repo.last.Query)
	}
}

func TestBrowseEmptyMessagePriority(t *testing.T) {
	repo := &stubRepo{}
	svc := newBrowseService(t, repo, nil, nil)

	state := search.DefaultFilterState()
	state.Query = "nothing-matches"
	state.Categories = []string{"electronics"}

	result, err := svc.Browse(context.Background(), BrowseInput{State: state})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if result.EmptyMessage == "" {
		t.Fatal("expected context-sensitive empty message")
	}
}

func TestBrowseFetchFailure(t *testing.T) {
	repo := &stubRepo{err: errors.New("db down")}
	svc := newBrowseService(t, repo, nil, nil)

	_, err := svc.Browse(context.Background(), BrowseInput{State: search.DefaultFilterState()})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestBrowseSupersededByNewerRequest(t *testing.T) {
	repo := &stubRepo{}
	gens := &stubGenerations{bumpAfterNext: true}
	svc := newBrowseService(t, repo, gens, nil)

	result, err := svc.Browse(context.Background(), BrowseInput{
		ViewerID: "viewer-1",
		State:    search.DefaultFilterState(),
	})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if !result.Superseded {
		t.Fatal("expected response to be flagged superseded")
	}
}

func TestBrowseRecordsAnalytics(t *testing.T) {
	repo := &stubRepo{rows: []models.Listing{listingRow("chair", "furniture", 100, nil, nil)}}
	rec := &stubRecorder{}
	svc := newBrowseService(t, repo, nil, rec)

	if _, err := svc.Browse(context.Background(), BrowseInput{ViewerID: "viewer-1", State: search.DefaultFilterState()}); err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("expected one analytics event, got %d", len(rec.events))
	}
	if rec.events[0].ResultCount != 1 {
		t.Fatalf("expected result count 1, got %d", rec.events[0].ResultCount)
	}
}

func TestNearbyDefaultsToDistanceSort(t *testing.T) {
	near := listingRow("near", "misc", 100, float64Ptr(51.51), float64Ptr(-0.11))
	farther := listingRow("farther", "misc", 100, float64Ptr(51.54), float64Ptr(-0.05))
	repo := &stubRepo{rows: []models.Listing{farther, near}}
	svc := newBrowseService(t, repo, nil, nil)

	result, err := svc.Nearby(context.Background(), NearbyInput{
		ViewerID: "viewer-1",
		Location: geo.Point{Lat: 51.5, Lng: -0.12},
		RadiusKm: 25,
	})
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(result.Products) != 2 {
		t.Fatalf("expected both listings within radius, got %d", len(result.Products))
	}
	if result.Products[0].Title != "near" {
		t.Fatalf("expected nearest first, got %s", result.Products[0].Title)
	}
}

func TestNearbyRejectsBadListingType(t *testing.T) {
	svc := newBrowseService(t, &stubRepo{}, nil, nil)
	bad := "rent"
	_, err := svc.Nearby(context.Background(), NearbyInput{
		Location:    geo.Point{Lat: 51.5, Lng: -0.12},
		ListingType: &bad,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
