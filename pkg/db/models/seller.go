package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nearmarket/nearmarket-backend/pkg/enums"
)

// Seller represents the merchant account behind a set of listings.
type Seller struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DisplayName  string             `gorm:"column:display_name;not null"`
	Email        *string            `gorm:"column:email"`
	Phone        *string            `gorm:"column:phone"`
	Status       enums.SellerStatus `gorm:"column:status;type:seller_status;not null;default:'pending_verification'"`
	City         *string            `gorm:"column:city"`
	Lat          *float64           `gorm:"column:lat;type:numeric(9,6)"`
	Lng          *float64           `gorm:"column:lng;type:numeric(9,6)"`
	OwnerID      uuid.UUID          `gorm:"column:owner;type:uuid;not null"`
	LastActiveAt *time.Time         `gorm:"column:last_active_at"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// IsVerified reports whether the seller passed verification.
func (s *Seller) IsVerified() bool {
	return s != nil && s.Status == enums.SellerStatusVerified
}
