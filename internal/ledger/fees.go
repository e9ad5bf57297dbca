package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/trayfoods/trayfoods-backend/pkg/money"
)

// Transfer fee schedule, matching what the gateway bills for a local
// payout.
var (
	transferFeeFlat      = decimal.NewFromInt(100)
	transferFeeRate      = decimal.RequireFromString("0.025")
	transferFeeThreshold = decimal.NewFromInt(2500)
)

// TransferFeeFor returns the fee a withdrawal of the given amount incurs.
func TransferFeeFor(amount money.Money) money.Money {
	if amount.Amount.LessThanOrEqual(transferFeeThreshold) {
		return money.New(transferFeeFlat, amount.Currency)
	}
	fee := money.RoundHalfUp(amount.Amount.Mul(transferFeeRate).Add(transferFeeFlat))
	return money.New(fee, amount.Currency)
}
