package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trayfoods/trayfoods-backend/pkg/enums"
)

// Transaction is an append-only wallet ledger entry. Rows are never
// updated except for their status and settlement timestamps.
type Transaction struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID    uuid.UUID               `gorm:"column:wallet_id;type:uuid;not null;index"`
	Kind        enums.TransactionKind   `gorm:"column:kind;type:text;not null"`
	Status      enums.TransactionStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Amount      decimal.Decimal         `gorm:"column:amount;type:numeric(14,2);not null"`
	TransferFee decimal.Decimal         `gorm:"column:transfer_fee;type:numeric(14,2);not null;default:0"`
	Currency    enums.Currency          `gorm:"column:currency;type:text;not null;default:'NGN'"`
	ExternalRef *string                 `gorm:"column:external_ref;uniqueIndex"`
	GatewayID   *string                 `gorm:"column:gateway_id"`
	OrderTrack  *string                 `gorm:"column:order_track_id;index"`
	Title       string                  `gorm:"column:title;not null"`
	Description string                  `gorm:"column:description;not null"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	SettledAt   *time.Time              `gorm:"column:settled_at"`
}
