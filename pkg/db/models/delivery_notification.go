package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/trayfoods/trayfoods-backend/pkg/enums"
)

// DeliveryNotification tracks one courier's invitation to deliver one
// store's slice of an order. At most one row exists per (order, courier).
type DeliveryNotification struct {
	ID        uuid.UUID                        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID                        `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_delivery_notifications_order_courier"`
	StoreID   uuid.UUID                        `gorm:"column:store_id;type:uuid;not null;index"`
	CourierID uuid.UUID                        `gorm:"column:courier_id;type:uuid;not null;uniqueIndex:idx_delivery_notifications_order_courier"`
	Status    enums.DeliveryNotificationStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	CreatedAt time.Time                        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                        `gorm:"column:updated_at;autoUpdateTime"`
}
