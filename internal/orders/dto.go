package orders

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trayfoods/trayfoods-backend/pkg/types"
)

var validate = validator.New()

// ComposeInput is the customer's cart as submitted at checkout. Prices
// arrive frozen from the client and are re-verified against the catalog.
type ComposeInput struct {
	CustomerID         uuid.UUID        `validate:"required"`
	StoresInfos        types.StoreInfos `validate:"required,min=1"`
	Shipping           types.Shipping   `validate:"required"`
	OverallPrice       decimal.Decimal  `validate:"required"`
	DeliveryFee        decimal.Decimal
	StoreNotes         types.JSONMap
	DeliveryPersonNote string `validate:"max=500"`
}

// ChargeSuccessEvent is the charge.success webhook payload the pipeline
// consumes. AmountMinor is the gateway amount in minor units.
type ChargeSuccessEvent struct {
	Reference   string
	AmountMinor int64
	Channel     string
}
