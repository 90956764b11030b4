package controllers

import (
	"net/http"

	"github.com/nearmarket/nearmarket-backend/api/responses"
	"github.com/nearmarket/nearmarket-backend/api/validators"
	"github.com/nearmarket/nearmarket-backend/internal/location"
	pkgerrors "github.com/nearmarket/nearmarket-backend/pkg/errors"
	"github.com/nearmarket/nearmarket-backend/pkg/geo"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
)

type resolveLocationRequest struct {
	Lat     *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lng     *float64 `json:"lng,omitempty" validate:"omitempty,longitude"`
	City    string   `json:"city,omitempty" validate:"omitempty,max=120"`
	PlaceID string   `json:"place_id,omitempty" validate:"omitempty,max=300"`
}

// ResolveLocation normalizes coordinates, a city name or a place id into a
// point the browse surface can filter by. Lookup failures degrade instead of
// erroring so distance filtering switches off rather than breaking browse.
func ResolveLocation(svc location.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "location service unavailable"))
			return
		}

		var payload resolveLocationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := location.ResolveInput{
			City:    validators.SanitizeString(payload.City, 120),
			PlaceID: validators.SanitizeString(payload.PlaceID, 300),
		}
		if payload.Lat != nil && payload.Lng != nil {
			input.Coords = &geo.Point{Lat: *payload.Lat, Lng: *payload.Lng}
		}

		resolved, err := svc.Resolve(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resolved)
	}
}

// LocationAutocomplete proxies place suggestions for the location picker.
func LocationAutocomplete(svc location.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "location service unavailable"))
			return
		}

		input := validators.SanitizeString(r.URL.Query().Get("input"), 120)
		suggestions, err := svc.Autocomplete(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"suggestions": suggestions})
	}
}
