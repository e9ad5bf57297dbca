package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/trayfoods/trayfoods-backend/internal/ledger"
	"github.com/trayfoods/trayfoods-backend/pkg/db/models"
	"github.com/trayfoods/trayfoods-backend/pkg/enums"
	pkgerrors "github.com/trayfoods/trayfoods-backend/pkg/errors"
	"github.com/trayfoods/trayfoods-backend/pkg/money"
	"github.com/trayfoods/trayfoods-backend/pkg/paystack"
)

// refundShare is the amount returned to the customer when one store
// drops out: the store's goods plus its slice of the delivery money. The
// fee column keeps the full customer-paid amount (the courier bonus is
// carved out of it, not added on top), so the slice is the plain fee
// divided across stores. A single-store order also gives the service
// fee back.
func refundShare(order *models.Order, storeID string) (decimal.Decimal, bool) {
	info, ok := order.StoresInfos.ByStore(storeID)
	if !ok {
		return decimal.Zero, false
	}
	stores := decimal.NewFromInt(int64(len(order.StoresInfos)))
	share := info.GrossTotal().Add(order.DeliveryFee.Div(stores))
	if len(order.StoresInfos) == 1 {
		share = share.Add(order.ServiceFee)
	}
	return money.RoundHalfUp(share), true
}

// fullRefundTotal is everything the customer paid, returned on a
// whole-order cancellation.
func fullRefundTotal(order *models.Order) decimal.Decimal {
	return order.OverallPrice.Add(order.DeliveryFee).Add(order.ServiceFee)
}

// initiateStoreRefund runs after a store's rejection or cancellation has
// committed: ask the gateway for the store's share back, then record the
// pending refund and restock the shelf. The caller reverts the store
// decision if this fails.
func (s *service) initiateStoreRefund(ctx context.Context, trackID string, storeID uuid.UUID) error {
	order, err := s.GetByTrackID(ctx, trackID)
	if err != nil {
		return err
	}
	share, ok := refundShare(order, storeID.String())
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInternal, "store missing from stores_infos")
	}

	if _, err := s.gateway.Refund(ctx, paystack.RefundParams{
		TransactionReference: order.TrackID,
		Amount:               money.New(share, string(s.currency)),
	}); err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.GetByTrackIDForUpdate(ctx, trackID)
		if err != nil {
			return err
		}
		if locked == nil {
			return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
		}
		locked.StoresStatus = locked.StoresStatus.Set(storeID.String(), enums.StoreOrderStatusPendingRefund)
		locked.Status = Aggregate(locked.StoresStatus)
		locked.PaymentStatus = enums.PaymentStatusPendingRefund
		s.appendActivity(locked, "Refund started",
			fmt.Sprintf("A refund of %s was requested for one store", money.New(share, string(s.currency)).String()),
			"refund_initiated")

		if info, found := locked.StoresInfos.ByStore(storeID.String()); found {
			for _, line := range info.Items {
				if err := repo.AdjustItemQuantity(ctx, line.Slug, line.Quantity); err != nil {
					return err
				}
			}
		}
		return repo.Save(ctx, locked)
	})
}

// HandleRefundProcessed settles a refund.processed webhook. The store is
// matched by its computed share; an unmatched amount equal to the whole
// order settles a customer cancellation.
func (s *service) HandleRefundProcessed(ctx context.Context, reference string, amount money.Money) error {
	var (
		clawbackWallet uuid.UUID
		doClawback     bool
		customerID     uuid.UUID
		trackID        string
	)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.GetByTrackIDForUpdate(ctx, reference)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.Newf(pkgerrors.CodeOrderNotFound, "no order for reference %s", reference)
		}
		trackID = order.TrackID
		customerID = order.CustomerID

		matched := ""
		for _, entry := range order.StoresStatus {
			if entry.Status != enums.StoreOrderStatusPendingRefund {
				continue
			}
			share, ok := refundShare(order, entry.StoreID)
			if ok && share.Equal(amount.Amount) {
				matched = entry.StoreID
				break
			}
		}

		switch {
		case matched != "":
			order.StoresStatus = order.StoresStatus.Set(matched, enums.StoreOrderStatusRefunded)
			order.FundsRefunded = order.FundsRefunded.Add(amount.Amount)
			if order.StoresStatus.AllIn(enums.StoreOrderStatusRefunded) {
				order.PaymentStatus = enums.PaymentStatusRefunded
			} else {
				order.PaymentStatus = enums.PaymentStatusPartiallyRefunded
			}
			order.Status = Aggregate(order.StoresStatus)
			s.appendActivity(order, "Refund completed",
				fmt.Sprintf("The gateway returned %s to the customer", amount.String()),
				"refund_processed")

			storeID, parseErr := uuid.Parse(matched)
			if parseErr != nil {
				return pkgerrors.Newf(pkgerrors.CodeInternal, "order carries malformed store id %q", matched)
			}
			store, err := repo.GetStore(ctx, storeID)
			if err != nil {
				return err
			}
			if store != nil {
				clawbackWallet = store.WalletID
				doClawback = true
			}

		case amount.Amount.Equal(fullRefundTotal(order)) && order.PaymentStatus == enums.PaymentStatusPendingRefund:
			// Whole-order cancellation: the stores stay cancelled, only
			// the payment side closes out.
			order.FundsRefunded = order.FundsRefunded.Add(amount.Amount)
			order.PaymentStatus = enums.PaymentStatusRefunded
			s.appendActivity(order, "Refund completed",
				fmt.Sprintf("The gateway returned the full %s to the customer", amount.String()),
				"refund_processed")

		default:
			return pkgerrors.Newf(pkgerrors.CodeAmountMismatch,
				"refund of %s matches no pending store share on %s", amount.String(), trackID)
		}
		return repo.Save(ctx, order)
	})
	if err != nil {
		return err
	}

	if doClawback {
		_, err := s.ledger.Refund(ctx, ledger.RefundInput{
			WalletID:    clawbackWallet,
			Amount:      amount,
			OrderTrack:  trackID,
			Description: fmt.Sprintf("Refund clawback for order %s", trackID),
		})
		// A store rejected from pending was never credited; there is
		// nothing to claw back and that is fine.
		if err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds) {
			s.logger.Error(s.logger.WithTrackID(ctx, trackID), "refund clawback failed", err)
			return err
		}
	}

	s.notify(ctx, customerID, "Refund completed",
		fmt.Sprintf("%s has been returned for order %s", amount.String(), trackID))
	return nil
}

// HandleRefundFailed records a refund.failed webhook: the store's refund
// branch parks at failed-refund and its order credit is frozen until
// support resolves the case.
func (s *service) HandleRefundFailed(ctx context.Context, reference string, amount money.Money) error {
	var (
		holdWallet uuid.UUID
		doHold     bool
		trackID    string
	)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.GetByTrackIDForUpdate(ctx, reference)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.Newf(pkgerrors.CodeOrderNotFound, "no order for reference %s", reference)
		}
		trackID = order.TrackID

		matched := ""
		for _, entry := range order.StoresStatus {
			if entry.Status != enums.StoreOrderStatusPendingRefund {
				continue
			}
			share, ok := refundShare(order, entry.StoreID)
			if ok && share.Equal(amount.Amount) {
				matched = entry.StoreID
				break
			}
		}
		if matched == "" {
			return pkgerrors.Newf(pkgerrors.CodeAmountMismatch,
				"failed refund of %s matches no pending store share on %s", amount.String(), trackID)
		}

		order.StoresStatus = order.StoresStatus.Set(matched, enums.StoreOrderStatusFailedRefund)
		refunded := order.StoresStatus.AnyIn(enums.StoreOrderStatusRefunded, enums.StoreOrderStatusPendingRefund)
		if refunded {
			order.PaymentStatus = enums.PaymentStatusPartiallyFailedRefund
		} else {
			order.PaymentStatus = enums.PaymentStatusFailedRefund
		}
		order.Status = Aggregate(order.StoresStatus)
		s.appendActivity(order, "Refund failed",
			fmt.Sprintf("The gateway could not return %s", amount.String()),
			"refund_failed")

		storeID, parseErr := uuid.Parse(matched)
		if parseErr != nil {
			return pkgerrors.Newf(pkgerrors.CodeInternal, "order carries malformed store id %q", matched)
		}
		store, err := repo.GetStore(ctx, storeID)
		if err != nil {
			return err
		}
		if store != nil {
			holdWallet = store.WalletID
			doHold = true
		}
		return repo.Save(ctx, order)
	})
	if err != nil {
		return err
	}

	if doHold {
		if err := s.ledger.HoldOrderCredit(ctx, holdWallet, trackID); err != nil &&
			!pkgerrors.HasCode(err, pkgerrors.CodeTransactionNotFound) {
			s.logger.Error(s.logger.WithTrackID(ctx, trackID), "holding order credit failed", err)
			return err
		}
	}
	return nil
}
