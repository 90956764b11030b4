package controllers

import (
	"math"
	"net/http"
	"strings"

	"github.com/nearmarket/nearmarket-backend/api/middleware"
	"github.com/nearmarket/nearmarket-backend/api/responses"
	"github.com/nearmarket/nearmarket-backend/api/validators"
	"github.com/nearmarket/nearmarket-backend/internal/marketplace"
	"github.com/nearmarket/nearmarket-backend/internal/search"
	"github.com/nearmarket/nearmarket-backend/pkg/enums"
	pkgerrors "github.com/nearmarket/nearmarket-backend/pkg/errors"
	"github.com/nearmarket/nearmarket-backend/pkg/geo"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
)

const maxQueryLength = 200

// BrowseProducts serves the filtered, ranked marketplace feed.
func BrowseProducts(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		input, err := parseBrowseInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Browse(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// NearbyProducts serves the location-first feed: coordinates are required and
// distance is the default ordering.
func NearbyProducts(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		lat, err := validators.ParseQueryFloat(r, "lat")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lng, err := validators.ParseQueryFloat(r, "lng")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if lat == nil || lng == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "lat and lng are required"))
			return
		}

		radius, err := validators.ParseQueryFloat(r, "radius_km")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		minPrice, maxPrice, err := parsePriceBounds(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		localPickup, err := validators.ParseQueryBool(r, "local_pickup")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		delivery, err := validators.ParseQueryBool(r, "delivery")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := marketplace.NearbyInput{
			ViewerID:      middleware.UserIDFromContext(r.Context()),
			Location:      geo.Point{Lat: *lat, Lng: *lng},
			Sort:          search.SortKey(strings.TrimSpace(r.URL.Query().Get("sort"))),
			Categories:    validators.ParseQueryCSV(r, "categories"),
			MinPriceCents: minPrice,
			MaxPriceCents: maxPrice,
			Query:         validators.SanitizeString(r.URL.Query().Get("q"), maxQueryLength),
			LocalPickup:   localPickup,
			Delivery:      delivery,
			Limit:         limit,
		}
		if radius != nil {
			input.RadiusKm = *radius
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			input.ListingType = &raw
		}

		result, err := svc.Nearby(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func parseBrowseInput(r *http.Request) (marketplace.BrowseInput, error) {
	var zero marketplace.BrowseInput

	state := search.DefaultFilterState()
	state.Query = validators.SanitizeString(r.URL.Query().Get("q"), maxQueryLength)
	state.Categories = validators.ParseQueryCSV(r, "categories")

	minPrice, maxPrice, err := parsePriceBounds(r)
	if err != nil {
		return zero, err
	}
	state.MinPriceCents = minPrice
	state.MaxPriceCents = maxPrice

	for key, target := range map[string]*bool{
		"verified":      &state.VerifiedOnly,
		"featured":      &state.FeaturedOnly,
		"on_sale":       &state.OnSaleOnly,
		"free_shipping": &state.FreeShippingOnly,
		"free":          &state.FreeOnly,
		"local_pickup":  &state.LocalPickup,
		"shipping":      &state.Shipping,
		"delivery":      &state.Delivery,
	} {
		value, err := validators.ParseQueryBool(r, key)
		if err != nil {
			return zero, err
		}
		*target = value
	}

	lat, err := validators.ParseQueryFloat(r, "lat")
	if err != nil {
		return zero, err
	}
	lng, err := validators.ParseQueryFloat(r, "lng")
	if err != nil {
		return zero, err
	}
	if lat != nil && lng != nil {
		state.UserLocation = &geo.Point{Lat: *lat, Lng: *lng}
	}

	radius, err := validators.ParseQueryFloat(r, "radius_km")
	if err != nil {
		return zero, err
	}
	if radius != nil {
		if math.IsNaN(*radius) {
			return zero, pkgerrors.New(pkgerrors.CodeValidation, "radius must be a number")
		}
		state.RadiusKm = *radius
	}

	sort, err := search.ParseSortKey(strings.TrimSpace(r.URL.Query().Get("sort")))
	if err != nil {
		return zero, err
	}

	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 500)
	if err != nil {
		return zero, err
	}

	input := marketplace.BrowseInput{
		ViewerID: middleware.UserIDFromContext(r.Context()),
		State:    state,
		Sort:     sort,
		Limit:    limit,
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		parsed, err := enums.ParseListingType(raw)
		if err != nil {
			return zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing type")
		}
		input.ListingType = &parsed
	}

	return input, nil
}

func parsePriceBounds(r *http.Request) (*int, *int, error) {
	minPrice, err := parseOptionalInt(r, "min_price_cents")
	if err != nil {
		return nil, nil, err
	}
	maxPrice, err := parseOptionalInt(r, "max_price_cents")
	if err != nil {
		return nil, nil, err
	}
	return minPrice, maxPrice, nil
}

func parseOptionalInt(r *http.Request, key string) (*int, error) {
	if strings.TrimSpace(r.URL.Query().Get(key)) == "" {
		return nil, nil
	}
	value, err := validators.ParseQueryInt(r, key, 0, 0, math.MaxInt32)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
