package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/trayfoods/trayfoods-backend/pkg/types"
)

// Store is a vendor storefront referenced by orders via its stable id.
type Store struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID          uuid.UUID       `gorm:"column:profile_id;type:uuid;not null;index"`
	WalletID           uuid.UUID       `gorm:"column:wallet_id;type:uuid;not null"`
	Name               string          `gorm:"column:name;not null"`
	Approved           bool            `gorm:"column:approved;not null;default:false"`
	Online             bool            `gorm:"column:online;not null;default:false"`
	Suspended          bool            `gorm:"column:suspended;not null;default:false"`
	Timezone           string          `gorm:"column:timezone;not null;default:'Africa/Lagos'"`
	OpenHours          types.OpenHours `gorm:"column:open_hours;type:jsonb;serializer:json"`
	GenderPreference   *string         `gorm:"column:gender_preference"`
	AvgPreparationTime int             `gorm:"column:avg_preparation_time_minutes;not null;default:0"`
	Latitude           *float64        `gorm:"column:latitude"`
	Longitude          *float64        `gorm:"column:longitude"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
