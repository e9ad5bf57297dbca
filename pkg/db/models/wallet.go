package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trayfoods/trayfoods-backend/pkg/enums"
)

// Wallet holds one actor's funds. Balance mutates only through ledger
// operations; UnclearedBalance tracks order credits inside the settlement
// window and ClearedBalance accrues courier earnings until the monthly payout.
type Wallet struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID        uuid.UUID       `gorm:"column:profile_id;type:uuid;not null;uniqueIndex:idx_wallets_profile_currency"`
	Currency         enums.Currency  `gorm:"column:currency;type:text;not null;default:'NGN';uniqueIndex:idx_wallets_profile_currency"`
	Balance          decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	UnclearedBalance decimal.Decimal `gorm:"column:uncleared_balance;type:numeric(14,2);not null;default:0"`
	ClearedBalance   decimal.Decimal `gorm:"column:cleared_balance;type:numeric(14,2);not null;default:0"`
	Hidden           bool            `gorm:"column:hidden;not null;default:false"`
	PasscodeHash     *string         `gorm:"column:passcode_hash"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
