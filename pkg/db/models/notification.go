package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nearmarket/nearmarket-backend/pkg/enums"
)

// Notification is a per-user inbox entry.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	Type      enums.NotificationType `gorm:"column:type;type:notification_type;not null" json:"type"`
	Title     string                 `gorm:"column:title;not null" json:"title"`
	Body      *string                `gorm:"column:body" json:"body,omitempty"`
	EntityID  *uuid.UUID             `gorm:"column:entity_id;type:uuid" json:"entity_id,omitempty"`
	ReadAt    *time.Time             `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
