package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/trayfoods/trayfoods-backend/pkg/enums"
)

// Courier is a delivery person referenced by orders via their stable id.
type Courier struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID        uuid.UUID          `gorm:"column:profile_id;type:uuid;not null;index"`
	WalletID         uuid.UUID          `gorm:"column:wallet_id;type:uuid;not null"`
	Approved         bool               `gorm:"column:approved;not null;default:false"`
	Availability     enums.Availability `gorm:"column:availability;type:text;not null;default:'offline'"`
	Gender           *string            `gorm:"column:gender"`
	ActiveDeliveries int                `gorm:"column:active_deliveries;not null;default:0"`
	Latitude         *float64           `gorm:"column:latitude"`
	Longitude        *float64           `gorm:"column:longitude"`
	RecipientCode    *string            `gorm:"column:recipient_code"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// IsOnDelivery reports whether the courier is at their concurrent
// delivery cap.
func (c Courier) IsOnDelivery(maxConcurrent int) bool {
	return c.ActiveDeliveries >= maxConcurrent
}
