package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nearmarket/nearmarket-backend/api/middleware"
	"github.com/nearmarket/nearmarket-backend/api/responses"
	"github.com/nearmarket/nearmarket-backend/api/validators"
	listingsvc "github.com/nearmarket/nearmarket-backend/internal/listings"
	"github.com/nearmarket/nearmarket-backend/pkg/enums"
	pkgerrors "github.com/nearmarket/nearmarket-backend/pkg/errors"
	"github.com/nearmarket/nearmarket-backend/pkg/geo"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
	"github.com/nearmarket/nearmarket-backend/pkg/pagination"
)

type createListingRequest struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Description  *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category     string   `json:"category" validate:"required,max=100"`
	ListingType  string   `json:"listing_type" validate:"required"`
	PriceCents   int      `json:"price_cents" validate:"min=0"`
	Currency     string   `json:"currency,omitempty" validate:"omitempty,len=3"`
	StockQty     int      `json:"stock_qty" validate:"min=0"`
	Lat          *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lng          *float64 `json:"lng,omitempty" validate:"omitempty,longitude"`
	City         *string  `json:"city,omitempty" validate:"omitempty,max=120"`
	PostalCode   *string  `json:"postal_code,omitempty" validate:"omitempty,max=20"`
	OnSale       bool     `json:"on_sale"`
	FreeShipping bool     `json:"free_shipping"`
	LocalPickup  bool     `json:"local_pickup"`
	Shipping     bool     `json:"shipping"`
	Delivery     bool     `json:"delivery"`
	ImageKeys    []string `json:"image_keys,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

type updateListingRequest struct {
	Title        *string  `json:"title,omitempty" validate:"omitempty,max=200"`
	Description  *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category     *string  `json:"category,omitempty" validate:"omitempty,max=100"`
	ListingType  *string  `json:"listing_type,omitempty"`
	Status       *string  `json:"status,omitempty"`
	PriceCents   *int     `json:"price_cents,omitempty" validate:"omitempty,min=0"`
	StockQty     *int     `json:"stock_qty,omitempty" validate:"omitempty,min=0"`
	Lat          *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lng          *float64 `json:"lng,omitempty" validate:"omitempty,longitude"`
	City         *string  `json:"city,omitempty" validate:"omitempty,max=120"`
	PostalCode   *string  `json:"postal_code,omitempty" validate:"omitempty,max=20"`
	OnSale       *bool    `json:"on_sale,omitempty"`
	FreeShipping *bool    `json:"free_shipping,omitempty"`
	LocalPickup  *bool    `json:"local_pickup,omitempty"`
	Shipping     *bool    `json:"shipping,omitempty"`
	Delivery     *bool    `json:"delivery,omitempty"`
	ImageKeys    *[]string `json:"image_keys,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
}

// SellerCreateListing handles listing creation for the authenticated seller.
func SellerCreateListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createListingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingType, err := enums.ParseListingType(strings.TrimSpace(payload.ListingType))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing type"))
			return
		}

		input := listingsvc.CreateListingInput{
			Title:        payload.Title,
			Description:  payload.Description,
			Category:     payload.Category,
			ListingType:  listingType,
			PriceCents:   payload.PriceCents,
			Currency:     payload.Currency,
			StockQty:     payload.StockQty,
			City:         payload.City,
			PostalCode:   payload.PostalCode,
			OnSale:       payload.OnSale,
			FreeShipping: payload.FreeShipping,
			LocalPickup:  payload.LocalPickup,
			Shipping:     payload.Shipping,
			Delivery:     payload.Delivery,
			ImageKeys:    payload.ImageKeys,
			Tags:         payload.Tags,
		}
		if payload.Lat != nil && payload.Lng != nil {
			input.Location = &geo.Point{Lat: *payload.Lat, Lng: *payload.Lng}
		}

		listing, err := svc.CreateListing(r.Context(), sellerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

// SellerUpdateListing applies a partial update to a seller-owned listing.
func SellerUpdateListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := pathUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateListingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := listingsvc.UpdateListingInput{
			Title:        payload.Title,
			Description:  payload.Description,
			Category:     payload.Category,
			PriceCents:   payload.PriceCents,
			StockQty:     payload.StockQty,
			City:         payload.City,
			PostalCode:   payload.PostalCode,
			OnSale:       payload.OnSale,
			FreeShipping: payload.FreeShipping,
			LocalPickup:  payload.LocalPickup,
			Shipping:     payload.Shipping,
			Delivery:     payload.Delivery,
			ImageKeys:    payload.ImageKeys,
			Tags:         payload.Tags,
		}
		if payload.ListingType != nil {
			parsed, err := enums.ParseListingType(strings.TrimSpace(*payload.ListingType))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing type"))
				return
			}
			input.ListingType = &parsed
		}
		if payload.Status != nil {
			parsed, err := enums.ParseListingStatus(strings.TrimSpace(*payload.Status))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing status"))
				return
			}
			input.Status = &parsed
		}
		if payload.Lat != nil && payload.Lng != nil {
			input.Location = &geo.Point{Lat: *payload.Lat, Lng: *payload.Lng}
		}

		listing, err := svc.UpdateListing(r.Context(), sellerID, listingID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listing)
	}
}

// SellerArchiveListing pulls a listing from the public feed without deleting it.
func SellerArchiveListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := pathUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.ArchiveListing(r.Context(), sellerID, listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listing)
	}
}

// SellerDeleteListing removes a listing permanently.
func SellerDeleteListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := pathUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteListing(r.Context(), sellerID, listingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// GetListing serves a single public listing.
func GetListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, err := pathUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.GetListing(r.Context(), listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listing)
	}
}

// SellerListListings pages through the authenticated seller's listings.
func SellerListListings(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListSellerListings(r.Context(), sellerID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func authenticatedUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return parsed, nil
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, param+" is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+param)
	}
	return parsed, nil
}

func paginationParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
