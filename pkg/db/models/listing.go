package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nearmarket/nearmarket-backend/pkg/enums"
	"github.com/nearmarket/nearmarket-backend/pkg/types"
)

// Listing represents the canonical marketplace listing.
type Listing struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID     uuid.UUID           `gorm:"column:seller_id;type:uuid;not null"`
	Title        string              `gorm:"column:title;not null"`
	Description  *string             `gorm:"column:description"`
	Category     string              `gorm:"column:category;not null"`
	ListingType  enums.ListingType   `gorm:"column:listing_type;type:listing_type;not null;default:'sale'"`
	Status       enums.ListingStatus `gorm:"column:status;type:listing_status;not null;default:'active'"`
	PriceCents   int                 `gorm:"column:price_cents;not null;default:0"`
	Currency     string              `gorm:"column:currency;not null;default:'USD'"`
	StockQty     int                 `gorm:"column:stock_qty;not null;default:1"`
	Lat          *float64            `gorm:"column:lat;type:numeric(9,6)"`
	Lng          *float64            `gorm:"column:lng;type:numeric(9,6)"`
	City         *string             `gorm:"column:city"`
	PostalCode   *string             `gorm:"column:postal_code"`
	IsFeatured   bool                `gorm:"column:is_featured;not null;default:false"`
	OnSale       bool                `gorm:"column:on_sale;not null;default:false"`
	FreeShipping bool                `gorm:"column:free_shipping;not null;default:false"`
	LocalPickup  bool                `gorm:"column:local_pickup;not null;default:true"`
	Shipping     bool                `gorm:"column:shipping;not null;default:false"`
	Delivery     bool                `gorm:"column:delivery;not null;default:false"`
	Rating       types.RatingSummary `gorm:"column:rating;type:jsonb"`
	ImageKeys    pq.StringArray      `gorm:"column:image_keys;type:text[]"`
	Tags         pq.StringArray      `gorm:"column:tags;type:text[]"`
	Seller       *Seller             `gorm:"foreignKey:SellerID"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
