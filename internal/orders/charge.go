package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/trayfoods/trayfoods-backend/pkg/enums"
	pkgerrors "github.com/trayfoods/trayfoods-backend/pkg/errors"
	"github.com/trayfoods/trayfoods-backend/pkg/money"
)

// Charge math constants. The gateway fee schedule mirrors what Paystack
// bills the platform for a local card charge.
var (
	gatewayFeeFlat      = decimal.NewFromInt(100)
	gatewayFeeRate      = decimal.RequireFromString("0.025")
	gatewayFeeThreshold = decimal.NewFromInt(2500)

	// paid-amount tolerance of one minor unit
	chargeEpsilon = decimal.RequireFromString("0.01")
)

// HandleChargeSuccess runs the post-payment pipeline for a charge.success
// event. Replays for an already successful payment are no-ops.
func (s *service) HandleChargeSuccess(ctx context.Context, event ChargeSuccessEvent) error {
	var (
		customerID   uuid.UUID
		vendorStores []uuid.UUID
		shortfall    bool
		trackID      string
	)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.GetByTrackIDForUpdate(ctx, event.Reference)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.Newf(pkgerrors.CodeOrderNotFound, "no order for reference %s", event.Reference)
		}
		if order.PaymentStatus == enums.PaymentStatusSuccess {
			return nil
		}
		if err := validateOrderVectors(order); err != nil {
			return err
		}
		trackID = order.TrackID
		customerID = order.CustomerID

		// Paid amount is judged on the fee basis frozen at composition,
		// before the courier bonus carve-out below.
		amount := money.FromMinorUnits(event.AmountMinor, string(s.currency))
		paid := amount.Amount.Sub(order.DeliveryFee).Sub(order.ServiceFee)
		if paid.LessThan(order.OverallPrice.Sub(chargeEpsilon)) {
			order.PaymentStatus = enums.PaymentStatusAwaitingRefundAction
			order.Status = enums.OrderStatusFailed
			order.PaymentMethod = event.Channel
			s.appendActivity(order, "Payment short",
				fmt.Sprintf("Charge of %s does not cover the order total", amount.String()),
				"payment_short")
			shortfall = true
			return repo.Save(ctx, order)
		}

		order.DeliveryFeeBonus = money.RoundHalfUp(order.DeliveryFee.Mul(s.bonusRate))
		order.GatewayFee = gatewayFee(amount.Amount)
		order.PaymentStatus = enums.PaymentStatusSuccess
		order.PaymentMethod = event.Channel
		order.Status = Aggregate(order.StoresStatus)
		if order.Status == enums.OrderStatusNotStarted {
			order.Status = enums.OrderStatusProcessing
		}
		s.appendActivity(order, "Order paid",
			fmt.Sprintf("Payment of %s confirmed via %s", amount.String(), event.Channel),
			"order_paid")

		for _, info := range order.StoresInfos {
			storeID, parseErr := uuid.Parse(info.StoreID)
			if parseErr != nil {
				return pkgerrors.Newf(pkgerrors.CodeInternal, "order carries malformed store id %q", info.StoreID)
			}
			vendorStores = append(vendorStores, storeID)
			for _, line := range info.Items {
				if err := repo.AdjustItemQuantity(ctx, line.Slug, -line.Quantity); err != nil {
					return err
				}
			}
		}
		return repo.Save(ctx, order)
	})
	if err != nil {
		return err
	}
	if trackID == "" {
		// already-success replay never reached the assignment above
		return nil
	}

	if shortfall {
		s.notify(ctx, customerID, "Payment issue",
			fmt.Sprintf("The payment for order %s did not cover the total. Support will reach out about a refund.", trackID))
		return nil
	}

	for _, storeID := range vendorStores {
		store, err := s.repo.GetStore(ctx, storeID)
		if err != nil || store == nil {
			continue
		}
		s.notify(ctx, store.ProfileID, "New order",
			fmt.Sprintf("You have a new order %s waiting for your decision", trackID))
	}
	s.notify(ctx, customerID, "Order placed",
		fmt.Sprintf("Payment received. Order %s is on its way to the stores.", trackID))
	return nil
}

// gatewayFee is the platform's cost of collecting the charge: a flat fee
// for small amounts, flat plus a rate above the threshold.
func gatewayFee(amount decimal.Decimal) decimal.Decimal {
	if amount.LessThanOrEqual(gatewayFeeThreshold) {
		return gatewayFeeFlat
	}
	return money.RoundHalfUp(amount.Mul(gatewayFeeRate).Add(gatewayFeeFlat))
}
