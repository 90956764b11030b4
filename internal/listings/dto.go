package listings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nearmarket/nearmarket-backend/pkg/db/models"
	"github.com/nearmarket/nearmarket-backend/pkg/types"
)

// ListingDTO is the seller-facing listing payload returned to clients.
type ListingDTO struct {
	ID           uuid.UUID           `json:"id"`
	SellerID     uuid.UUID           `json:"seller_id"`
	Title        string              `json:"title"`
	Description  *string             `json:"description,omitempty"`
	Category     string              `json:"category"`
	ListingType  string              `json:"listing_type"`
	Status       string              `json:"status"`
	PriceCents   int                 `json:"price_cents"`
	Price        string              `json:"price"`
	Currency     string              `json:"currency"`
	StockQty     int                 `json:"stock_qty"`
	Lat          *float64            `json:"lat,omitempty"`
	Lng          *float64            `json:"lng,omitempty"`
	City         *string             `json:"city,omitempty"`
	PostalCode   *string             `json:"postal_code,omitempty"`
	IsFeatured   bool                `json:"is_featured"`
	OnSale       bool                `json:"on_sale"`
	FreeShipping bool                `json:"free_shipping"`
	LocalPickup  bool                `json:"local_pickup"`
	Shipping     bool                `json:"shipping"`
	Delivery     bool                `json:"delivery"`
	Rating       types.RatingSummary `json:"rating"`
	ImageKeys    []string            `json:"image_keys,omitempty"`
	Tags         []string            `json:"tags,omitempty"`
	Seller       *SellerSummaryDTO   `json:"seller,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// SellerSummaryDTO is the minimal seller data attached to listing reads.
type SellerSummaryDTO struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Verified    bool      `json:"verified"`
	City        *string   `json:"city,omitempty"`
}

// ListingListResult is the paginated seller listing page.
type ListingListResult struct {
	Listings   []ListingDTO `json:"listings"`
	NextCursor *string      `json:"next_cursor,omitempty"`
}

// toListingDTO maps the storage model to the API payload.
func toListingDTO(listing *models.Listing) ListingDTO {
	dto := ListingDTO{
		ID:           listing.ID,
		SellerID:     listing.SellerID,
		Title:        listing.Title,
		Description:  listing.Description,
		Category:     listing.Category,
		ListingType:  listing.ListingType.String(),
		Status:       listing.Status.String(),
		PriceCents:   listing.PriceCents,
		Price:        formatPrice(listing.PriceCents),
		Currency:     listing.Currency,
		StockQty:     listing.StockQty,
		Lat:          listing.Lat,
		Lng:          listing.Lng,
		City:         listing.City,
		PostalCode:   listing.PostalCode,
		IsFeatured:   listing.IsFeatured,
		OnSale:       listing.OnSale,
		FreeShipping: listing.FreeShipping,
		LocalPickup:  listing.LocalPickup,
		Shipping:     listing.Shipping,
		Delivery:     listing.Delivery,
		Rating:       listing.Rating,
		ImageKeys:    listing.ImageKeys,
		Tags:         listing.Tags,
		CreatedAt:    listing.CreatedAt,
		UpdatedAt:    listing.UpdatedAt,
	}
	if listing.Seller != nil {
		dto.Seller = &SellerSummaryDTO{
			ID:          listing.Seller.ID,
			DisplayName: listing.Seller.DisplayName,
			Verified:    listing.Seller.IsVerified(),
			City:        listing.Seller.City,
		}
	}
	return dto
}

// formatPrice renders cents as a decimal money string ("12.50").
func formatPrice(cents int) string {
	return decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100)).StringFixed(2)
}
