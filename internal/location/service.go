package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nearmarket/nearmarket-backend/pkg/config"
	pkgerrors "github.com/nearmarket/nearmarket-backend/pkg/errors"
	"github.com/nearmarket/nearmarket-backend/pkg/geo"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
	"github.com/nearmarket/nearmarket-backend/pkg/maps"
)

const degradedMessage = "Location lookup is unavailable right now. Distance filtering is disabled."

// Geocoder is the external place-resolution surface the service depends on.
type Geocoder interface {
	Autocomplete(ctx context.Context, req maps.AutocompleteRequest) ([]maps.AutocompleteSuggestion, error)
	ResolvePlace(ctx context.Context, placeID string) (*maps.PlaceDetails, error)
	GeocodeText(ctx context.Context, query string) (*maps.PlaceDetails, error)
}

// Cache is the subset of the redis client the resolver uses.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	LocationKey(kind, id string) string
}

// ResolveInput selects exactly one resolution source: raw coordinates, a
// free-text city, or a place ID from autocomplete.
type ResolveInput struct {
	Coords  *geo.Point
	City    string
	PlaceID string
}

// Resolved is the normalized resolver output. When Degraded is set the caller
// must treat distance filtering as disabled; Message explains why.
type Resolved struct {
	Point            *geo.Point `json:"point,omitempty"`
	FormattedAddress string     `json:"formatted_address,omitempty"`
	City             string     `json:"city,omitempty"`
	Source           string     `json:"source"`
	Degraded         bool       `json:"degraded"`
	Message          string     `json:"message,omitempty"`
}

// Service resolves viewer locations with caching and a hard timeout.
type Service interface {
	Resolve(ctx context.Context, input ResolveInput) (*Resolved, error)
	Autocomplete(ctx context.Context, input string) ([]maps.AutocompleteSuggestion, error)
}

type service struct {
	geocoder Geocoder
	cache    Cache
	cfg      config.GeoConfig
	logg     *logger.Logger
}

// NewService builds the resolver. The geocoder is optional: without one every
// city/place resolution degrades and raw-coordinate input still works.
func NewService(geocoder Geocoder, cache Cache, cfg config.GeoConfig, logg *logger.Logger) (Service, error) {
	if cache == nil {
		return nil, errors.New("location cache is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = 5 * time.Second
	}
	if cfg.LocationCacheTTL <= 0 {
		cfg.LocationCacheTTL = 5 * time.Minute
	}
	return &service{geocoder: geocoder, cache: cache, cfg: cfg, logg: logg}, nil
}

// Resolve maps the input to coordinates. Failures are never fatal: timeouts,
// missing geocoder and upstream errors all collapse into a degraded result the
// caller can browse without.
func (s *service) Resolve(ctx context.Context, input ResolveInput) (*Resolved, error) {
	if input.Coords == nil && strings.TrimSpace(input.City) == "" && strings.TrimSpace(input.PlaceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coordinates, city or place_id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ResolveTimeout)
	defer cancel()

	// Raw coordinates need no external call; city text is best-effort only.
	if input.Coords != nil {
		resolved := &Resolved{Point: input.Coords, Source: "coordinates"}
		s.annotateCoords(ctx, resolved)
		return resolved, nil
	}

	if placeID := strings.TrimSpace(input.PlaceID); placeID != "" {
		return s.resolveCached(ctx, "place", placeID, func(ctx context.Context) (*maps.PlaceDetails, error) {
			if s.geocoder == nil {
				return nil, errors.New("geocoder not configured")
			}
			return s.geocoder.ResolvePlace(ctx, placeID)
		}), nil
	}

	city := strings.TrimSpace(input.City)
	return s.resolveCached(ctx, "city", strings.ToLower(city), func(ctx context.Context) (*maps.PlaceDetails, error) {
		if s.geocoder == nil {
			return nil, errors.New("geocoder not configured")
		}
		return s.geocoder.GeocodeText(ctx, city)
	}), nil
}

// Autocomplete proxies place suggestions for the manual-entry flow.
func (s *service) Autocomplete(ctx context.Context, input string) ([]maps.AutocompleteSuggestion, error) {
	if strings.TrimSpace(input) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "autocomplete input is required")
	}
	if s.geocoder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "place lookup is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ResolveTimeout)
	defer cancel()

	return s.geocoder.Autocomplete(ctx, maps.AutocompleteRequest{Input: input})
}

func (s *service) resolveCached(ctx context.Context, kind, id string, fetch func(context.Context) (*maps.PlaceDetails, error)) *Resolved {
	key := s.cache.LocationKey(kind, id)

	if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
		var resolved Resolved
		if err := json.Unmarshal([]byte(cached), &resolved); err == nil {
			return &resolved
		}
	}

	details, err := fetch(ctx)
	if err != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{"kind": kind, "error": err.Error()})
		s.logg.Warn(ctx, "location resolution degraded")
		return &Resolved{Source: kind, Degraded: true, Message: degradedMessage}
	}

	resolved := &Resolved{
		Point:            &geo.Point{Lat: details.Location.Latitude, Lng: details.Location.Longitude},
		FormattedAddress: details.FormattedAddress,
		City:             cityFromComponents(details.AddressComponents),
		Source:           kind,
	}

	if payload, err := json.Marshal(resolved); err == nil {
		if err := s.cache.Set(ctx, key, string(payload), s.cfg.LocationCacheTTL); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "location cache write failed")
		}
	}

	return resolved
}

// annotateCoords attaches cached city text to a coordinate resolution when a
// previous reverse lookup stored one. Missing annotations leave the raw
// coordinates untouched.
func (s *service) annotateCoords(ctx context.Context, resolved *Resolved) {
	if resolved.Point == nil {
		return
	}
	key := s.cache.LocationKey("reverse", coordsCacheID(*resolved.Point))
	cached, err := s.cache.Get(ctx, key)
	if err != nil || cached == "" {
		return
	}
	var annotation Resolved
	if err := json.Unmarshal([]byte(cached), &annotation); err != nil {
		return
	}
	resolved.City = annotation.City
	resolved.FormattedAddress = annotation.FormattedAddress
}

func coordsCacheID(p geo.Point) string {
	// Four decimals (~11m) keeps nearby lookups on the same cache entry.
	return fmt.Sprintf("%.4f,%.4f", p.Lat, p.Lng)
}

func cityFromComponents(components []maps.AddressComponent) string {
	for _, comp := range components {
		for _, t := range comp.Types {
			if t == "locality" || t == "postal_town" {
				return comp.LongName
			}
		}
	}
	return ""
}
