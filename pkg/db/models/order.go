package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trayfoods/trayfoods-backend/pkg/enums"
	"github.com/trayfoods/trayfoods-backend/pkg/types"
)

// Order is the aggregate root for a multi-store purchase. It is created
// once and never deleted; only status columns and the append-only jsonb
// vectors mutate after creation.
type Order struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TrackID            string               `gorm:"column:track_id;not null;uniqueIndex"`
	PreviousTrackID    *string              `gorm:"column:previous_track_id;index"`
	CustomerID         uuid.UUID            `gorm:"column:customer_id;type:uuid;not null;index"`
	Currency           enums.Currency       `gorm:"column:currency;type:text;not null;default:'NGN'"`
	OverallPrice       decimal.Decimal      `gorm:"column:overall_price;type:numeric(14,2);not null"`
	DeliveryFee        decimal.Decimal      `gorm:"column:delivery_fee;type:numeric(14,2);not null"`
	ExtraDeliveryFee   decimal.Decimal      `gorm:"column:extra_delivery_fee;type:numeric(14,2);not null;default:0"`
	ServiceFee         decimal.Decimal      `gorm:"column:service_fee;type:numeric(14,2);not null"`
	DeliveryFeeBonus   decimal.Decimal      `gorm:"column:delivery_fee_bonus;type:numeric(14,2);not null;default:0"`
	GatewayFee         decimal.Decimal      `gorm:"column:gateway_fee;type:numeric(14,2);not null;default:0"`
	FundsRefunded      decimal.Decimal      `gorm:"column:funds_refunded;type:numeric(14,2);not null;default:0"`
	PaymentMethod      string               `gorm:"column:payment_method;not null;default:''"`
	PaymentStatus      enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Status             enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'not-started'"`
	Shipping           types.Shipping       `gorm:"column:shipping;type:jsonb;serializer:json"`
	StoresInfos        types.StoreInfos     `gorm:"column:stores_infos;type:jsonb;serializer:json"`
	StoresStatus       types.StoresStatus   `gorm:"column:stores_status;type:jsonb;serializer:json"`
	DeliveryPeople     types.DeliveryPeople `gorm:"column:delivery_people;type:jsonb;serializer:json"`
	StoreNotes         types.JSONMap        `gorm:"column:store_notes;type:jsonb;serializer:json"`
	DeliveryPersonNote string               `gorm:"column:delivery_person_note;not null;default:''"`
	Pin                string               `gorm:"column:pin;not null"`
	ActivitiesLog      types.ActivitiesLog  `gorm:"column:activities_log;type:jsonb;serializer:json"`
	ProfilesSeen       types.ProfilesSeen   `gorm:"column:profiles_seen;type:jsonb;serializer:json"`
	PaymentURL         string               `gorm:"column:payment_url;not null;default:''"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
