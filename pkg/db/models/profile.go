package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/trayfoods/trayfoods-backend/pkg/types"
)

// Profile is the person behind any actor role. A single profile can own
// a store, courier record, and customer wallet at the same time.
type Profile struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string             `gorm:"column:email;not null;uniqueIndex"`
	Phone        *string            `gorm:"column:phone"`
	FullName     string             `gorm:"column:full_name;not null"`
	Gender       *string            `gorm:"column:gender"`
	DeviceTokens types.DeviceTokens `gorm:"column:device_tokens;type:jsonb;serializer:json"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
