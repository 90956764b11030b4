package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nearmarket/nearmarket-backend/pkg/enums"
)

// BarterProposal is an offer to trade goods or services for a listing.
type BarterProposal struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID   uuid.UUID          `gorm:"column:listing_id;type:uuid;not null"`
	ProposerID  uuid.UUID          `gorm:"column:proposer_id;type:uuid;not null"`
	SellerID    uuid.UUID          `gorm:"column:seller_id;type:uuid;not null"`
	OfferedItem string             `gorm:"column:offered_item;not null"`
	Message     *string            `gorm:"column:message"`
	Status      enums.BarterStatus `gorm:"column:status;type:barter_status;not null;default:'pending'"`
	DecidedAt   *time.Time         `gorm:"column:decided_at"`
	Listing     *Listing           `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
