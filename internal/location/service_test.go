package location

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nearmarket/nearmarket-backend/pkg/config"
	pkgerrors "github.com/nearmarket/nearmarket-backend/pkg/errors"
	"github.com/nearmarket/nearmarket-backend/pkg/geo"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
	"github.com/nearmarket/nearmarket-backend/pkg/maps"
)

type fakeGeocoder struct {
	details    *maps.PlaceDetails
	err        error
	delay      time.Duration
	callCount  int
	lastPlace  string
	lastQuery  string
	suggestErr error
}

func (f *fakeGeocoder) Autocomplete(_ context.Context, req maps.AutocompleteRequest) ([]maps.AutocompleteSuggestion, error) {
	if f.suggestErr != nil {
		return nil, f.suggestErr
	}
	return []maps.AutocompleteSuggestion{{PlaceID: "place-1", Description: req.Input + " City"}}, nil
}

func (f *fakeGeocoder) ResolvePlace(ctx context.Context, placeID string) (*maps.PlaceDetails, error) {
	f.lastPlace = placeID
	return f.lookup(ctx)
}

func (f *fakeGeocoder) GeocodeText(ctx context.Context, query string) (*maps.PlaceDetails, error) {
	f.lastQuery = query
	return f.lookup(ctx)
}

func (f *fakeGeocoder) lookup(ctx context.Context) (*maps.PlaceDetails, error) {
	f.callCount++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.details, nil
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", errors.New("cache miss")
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	return nil
}

func (f *fakeCache) LocationKey(kind, id string) string {
	return strings.Join([]string{"nm", "location", kind, id}, ":")
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func newTestService(t *testing.T, geocoder Geocoder, cache Cache, cfg config.GeoConfig) Service {
	t.Helper()
	svc, err := NewService(geocoder, cache, cfg, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func londonDetails() *maps.PlaceDetails {
	return &maps.PlaceDetails{
		PlaceID:          "place-1",
		FormattedAddress: "London, UK",
		Location:         maps.LatLng{Latitude: 51.5074, Longitude: -0.1278},
		AddressComponents: []maps.AddressComponent{
			{LongName: "London", Types: []string{"locality"}},
		},
	}
}

func TestResolveRequiresASource(t *testing.T) {
	svc := newTestService(t, &fakeGeocoder{}, newFakeCache(), config.GeoConfig{})
	_, err := svc.Resolve(context.Background(), ResolveInput{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveCoordinatesSkipsGeocoder(t *testing.T) {
	gc := &fakeGeocoder{details: londonDetails()}
	svc := newTestService(t, gc, newFakeCache(), config.GeoConfig{})

	point := geo.Point{Lat: 51.5, Lng: -0.12}
	resolved, err := svc.Resolve(context.Background(), ResolveInput{Coords: &point})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Degraded {
		t.Fatal("coordinate input must never degrade")
	}
	if resolved.Point == nil || resolved.Point.Lat != 51.5 {
		t.Fatalf("expected echoed coordinates, got %+v", resolved.Point)
	}
	if gc.callCount != 0 {
		t.Fatal("coordinate resolution must not call the geocoder")
	}
}

func TestResolveCityCachesResult(t *testing.T) {
	gc := &fakeGeocoder{details: londonDetails()}
	cache := newFakeCache()
	svc := newTestService(t, gc, cache, config.GeoConfig{})

	first, err := svc.Resolve(context.Background(), ResolveInput{City: "London"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first.Degraded {
		t.Fatalf("unexpected degraded result: %+v", first)
	}
	if first.City != "London" {
		t.Fatalf("expected locality from components, got %q", first.City)
	}

	second, err := svc.Resolve(context.Background(), ResolveInput{City: "london"})
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if gc.callCount != 1 {
		t.Fatalf("expected one upstream call, got %d", gc.callCount)
	}
	if second.Point == nil || second.Point.Lat != first.Point.Lat {
		t.Fatal("cached result must round-trip the coordinates")
	}
}

func TestResolveDegradesOnGeocoderFailure(t *testing.T) {
	gc := &fakeGeocoder{err: errors.New("upstream down")}
	svc := newTestService(t, gc, newFakeCache(), config.GeoConfig{})

	resolved, err := svc.Resolve(context.Background(), ResolveInput{City: "London"})
	if err != nil {
		t.Fatalf("failure must degrade, not error: %v", err)
	}
	if !resolved.Degraded {
		t.Fatal("expected degraded result")
	}
	if resolved.Message == "" {
		t.Fatal("degraded result needs a user-facing message")
	}
	if resolved.Point != nil {
		t.Fatal("degraded result must not carry coordinates")
	}
}

func TestResolveDegradesOnTimeout(t *testing.T) {
	gc := &fakeGeocoder{details: londonDetails(), delay: 200 * time.Millisecond}
	svc := newTestService(t, gc, newFakeCache(), config.GeoConfig{ResolveTimeout: 20 * time.Millisecond})

	resolved, err := svc.Resolve(context.Background(), ResolveInput{PlaceID: "place-1"})
	if err != nil {
		t.Fatalf("timeout must degrade, not error: %v", err)
	}
	if !resolved.Degraded {
		t.Fatal("expected degraded result on timeout")
	}
}

func TestResolveDegradesWithoutGeocoder(t *testing.T) {
	svc := newTestService(t, nil, newFakeCache(), config.GeoConfig{})
	resolved, err := svc.Resolve(context.Background(), ResolveInput{City: "London"})
	if err != nil {
		t.Fatalf("missing geocoder must degrade, not error: %v", err)
	}
	if !resolved.Degraded {
		t.Fatal("expected degraded result without geocoder")
	}
}

func TestAutocomplete(t *testing.T) {
	svc := newTestService(t, &fakeGeocoder{}, newFakeCache(), config.GeoConfig{})

	suggestions, err := svc.Autocomplete(context.Background(), "Lon")
	if err != nil {
		t.Fatalf("Autocomplete: %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].PlaceID != "place-1" {
		t.Fatalf("unexpected suggestions: %+v", suggestions)
	}

	if _, err := svc.Autocomplete(context.Background(), "  "); err == nil {
		t.Fatal("expected validation error for empty input")
	}
}
