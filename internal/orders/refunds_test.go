package orders

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/trayfoods/trayfoods-backend/pkg/enums"
	pkgerrors "github.com/trayfoods/trayfoods-backend/pkg/errors"
	"github.com/trayfoods/trayfoods-backend/pkg/money"
)

func ngn(value string) money.Money {
	return money.New(decimal.RequireFromString(value), "NGN")
}

func TestRefundShare(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)

	// 400 goods + 300 / 2. The bonus lives inside the fee column, so it
	// never inflates the slice.
	share, ok := refundShare(seed.order, seed.storeB.String())
	if !ok {
		t.Fatal("store not found")
	}
	if !share.Equal(decimal.NewFromInt(550)) {
		t.Fatalf("share = %s, want 550", share)
	}
}

func TestRefundShareSingleStoreIncludesServiceFee(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	seed.order.StoresInfos = seed.order.StoresInfos[:1]

	// 600 goods + 300 delivery + 150 service fee
	share, ok := refundShare(seed.order, seed.storeA.String())
	if !ok {
		t.Fatal("store not found")
	}
	if !share.Equal(decimal.NewFromInt(1050)) {
		t.Fatalf("share = %s, want 1050", share)
	}
}

func TestRefundSharesNeverExceedAmountPaid(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)

	paid := seed.order.OverallPrice.Add(seed.order.DeliveryFee).Add(seed.order.ServiceFee)
	total := decimal.Zero
	for _, info := range seed.order.StoresInfos {
		share, ok := refundShare(seed.order, info.StoreID)
		if !ok {
			t.Fatalf("store %s not found", info.StoreID)
		}
		total = total.Add(share)
	}
	if total.GreaterThan(paid) {
		t.Fatalf("refund shares sum to %s, more than the %s paid", total, paid)
	}
}

func rejectStoreB(t *testing.T, env *testEnv, seed *seededOrder) {
	t.Helper()
	err := env.svc.VendorAction(context.Background(), VendorActionInput{
		TrackID: seed.order.TrackID, StoreID: seed.storeB, ActorProfileID: seed.vendorB, Action: VendorActionReject,
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
}

func TestHandleRefundProcessedPartial(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	rejectStoreB(t, env, seed)

	if err := env.svc.HandleRefundProcessed(context.Background(), seed.order.TrackID, ngn("550")); err != nil {
		t.Fatalf("refund processed: %v", err)
	}

	order := mustOrder(t, env, seed.order.TrackID)
	if status, _ := order.StoresStatus.Get(seed.storeB.String()); status != enums.StoreOrderStatusRefunded {
		t.Fatalf("store status = %s, want refunded", status)
	}
	if order.PaymentStatus != enums.PaymentStatusPartiallyRefunded {
		t.Fatalf("payment status = %s", order.PaymentStatus)
	}
	if !order.FundsRefunded.Equal(decimal.NewFromInt(550)) {
		t.Fatalf("funds refunded = %s", order.FundsRefunded)
	}
	// the rejected store's wallet gets the clawback attempt
	if len(env.ledger.refunds) != 1 || env.ledger.refunds[0].WalletID != seed.walletB {
		t.Fatalf("clawback calls = %+v", env.ledger.refunds)
	}
}

func TestHandleRefundProcessedToleratesUncreditedStore(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	rejectStoreB(t, env, seed)
	env.ledger.refundErr = pkgerrors.New(pkgerrors.CodeInsufficientFunds, "nothing to claw back")

	if err := env.svc.HandleRefundProcessed(context.Background(), seed.order.TrackID, ngn("550")); err != nil {
		t.Fatalf("refund processed should tolerate a never-credited store: %v", err)
	}
}

func TestHandleRefundProcessedAmountMismatch(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	rejectStoreB(t, env, seed)

	err := env.svc.HandleRefundProcessed(context.Background(), seed.order.TrackID, ngn("123.45"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeAmountMismatch) {
		t.Fatalf("expected AMOUNT_MISMATCH, got %v", err)
	}
}

func TestHandleRefundProcessedFullCancellation(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)

	if err := env.svc.CustomerCancel(context.Background(), seed.order.TrackID, seed.customer); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := env.svc.HandleRefundProcessed(context.Background(), seed.order.TrackID, ngn("1450")); err != nil {
		t.Fatalf("full refund processed: %v", err)
	}

	order := mustOrder(t, env, seed.order.TrackID)
	if order.PaymentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("payment status = %s, want refunded", order.PaymentStatus)
	}
	if order.Status != enums.OrderStatusCancelled {
		t.Fatalf("status = %s, want cancelled", order.Status)
	}
	if !order.FundsRefunded.Equal(decimal.NewFromInt(1450)) {
		t.Fatalf("funds refunded = %s", order.FundsRefunded)
	}
}

func TestHandleRefundFailedHoldsCredit(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	rejectStoreB(t, env, seed)

	if err := env.svc.HandleRefundFailed(context.Background(), seed.order.TrackID, ngn("550")); err != nil {
		t.Fatalf("refund failed: %v", err)
	}

	order := mustOrder(t, env, seed.order.TrackID)
	if status, _ := order.StoresStatus.Get(seed.storeB.String()); status != enums.StoreOrderStatusFailedRefund {
		t.Fatalf("store status = %s, want failed-refund", status)
	}
	if order.PaymentStatus != enums.PaymentStatusFailedRefund {
		t.Fatalf("payment status = %s", order.PaymentStatus)
	}
	if len(env.ledger.holds) != 1 || env.ledger.holds[0] != seed.order.TrackID {
		t.Fatalf("holds = %v", env.ledger.holds)
	}
}

func TestHandleRefundFailedBubblesPartially(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	rejectStoreB(t, env, seed)

	// a second refund branch is still pending when this one fails
	order := mustOrder(t, env, seed.order.TrackID)
	order.StoresStatus = order.StoresStatus.Set(seed.storeA.String(), enums.StoreOrderStatusPendingRefund)
	env.repo.orders[order.ID] = order

	if err := env.svc.HandleRefundFailed(context.Background(), seed.order.TrackID, ngn("550")); err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	updated := mustOrder(t, env, seed.order.TrackID)
	if updated.PaymentStatus != enums.PaymentStatusPartiallyFailedRefund {
		t.Fatalf("payment status = %s, want partially-failed-refund", updated.PaymentStatus)
	}
}
