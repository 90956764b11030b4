package marketplace

import (
	"time"

	"github.com/google/uuid"

	"github.com/nearmarket/nearmarket-backend/internal/search"
	"github.com/nearmarket/nearmarket-backend/pkg/db/models"
	"github.com/nearmarket/nearmarket-backend/pkg/geo"
)

// RankedListingDTO is the browse payload: a listing plus the per-request
// computed distance and best-match score.
type RankedListingDTO struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	Category     string    `json:"category"`
	ListingType  string    `json:"listing_type"`
	PriceCents   int       `json:"price_cents"`
	Currency     string    `json:"currency"`
	City         *string   `json:"city,omitempty"`
	SellerName   string    `json:"seller_name,omitempty"`
	Verified     bool      `json:"verified"`
	Featured     bool      `json:"featured"`
	OnSale       bool      `json:"on_sale"`
	FreeShipping bool      `json:"free_shipping"`
	RatingAvg    float64   `json:"rating_avg"`
	RatingCount  int       `json:"rating_count"`
	ImageKeys    []string  `json:"image_keys,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	// DistanceKm is omitted when the viewer has no location or the listing
	// has no coordinates.
	DistanceKm *float64 `json:"distance_km,omitempty"`
	Score      float64  `json:"score,omitempty"`
}

// BrowseResult is the ranked page returned to the client.
type BrowseResult struct {
	Products []RankedListingDTO `json:"products"`

	// EmptyMessage carries the context-sensitive copy when Products is empty.
	EmptyMessage string `json:"empty_message,omitempty"`

	// Generation tags the response with the viewer's request generation;
	// Superseded marks a response that lost the race to a newer request and
	// should be discarded by the client.
	Generation int64 `json:"generation,omitempty"`
	Superseded bool  `json:"superseded,omitempty"`
}

func toItem(listing *models.Listing) search.Item {
	item := search.Item{
		ID:           listing.ID,
		Title:        listing.Title,
		Category:     listing.Category,
		ListingType:  listing.ListingType,
		PriceCents:   listing.PriceCents,
		Featured:     listing.IsFeatured,
		OnSale:       listing.OnSale,
		FreeShipping: listing.FreeShipping,
		LocalPickup:  listing.LocalPickup,
		Shipping:     listing.Shipping,
		Delivery:     listing.Delivery,
		RatingAvg:    listing.Rating.Average,
		RatingCount:  listing.Rating.Count,
		Tags:         listing.Tags,
		CreatedAt:    listing.CreatedAt,
	}
	if listing.Description != nil {
		item.Description = *listing.Description
	}
	if listing.Lat != nil && listing.Lng != nil {
		item.Location = &geo.Point{Lat: *listing.Lat, Lng: *listing.Lng}
	}
	item.Verified = listing.Seller.IsVerified()
	return item
}

func toRankedDTO(r search.Ranked, listing *models.Listing, hasViewerLocation bool) RankedListingDTO {
	dto := RankedListingDTO{
		ID:           listing.ID,
		Title:        listing.Title,
		Description:  listing.Description,
		Category:     listing.Category,
		ListingType:  listing.ListingType.String(),
		PriceCents:   listing.PriceCents,
		Currency:     listing.Currency,
		City:         listing.City,
		Verified:     r.Verified,
		Featured:     listing.IsFeatured,
		OnSale:       listing.OnSale,
		FreeShipping: listing.FreeShipping,
		RatingAvg:    listing.Rating.Average,
		RatingCount:  listing.Rating.Count,
		ImageKeys:    listing.ImageKeys,
		Tags:         listing.Tags,
		CreatedAt:    listing.CreatedAt,
		Score:        r.Score,
	}
	if listing.Seller != nil {
		dto.SellerName = listing.Seller.DisplayName
	}
	if hasViewerLocation && r.HasDistance() {
		distance := r.DistanceKm
		dto.DistanceKm = &distance
	}
	return dto
}
