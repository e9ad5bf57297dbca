package orders

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/trayfoods/trayfoods-backend/pkg/enums"
	pkgerrors "github.com/trayfoods/trayfoods-backend/pkg/errors"
)

func TestHandleChargeSuccess(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	seed.order.PaymentStatus = enums.PaymentStatusPending
	seed.order.Status = enums.OrderStatusNotStarted
	seed.order.DeliveryFeeBonus = decimal.Zero
	env.repo.orders[seed.order.ID] = seed.order

	// 1000 goods + 300 delivery + 150 service fee, in kobo
	err := env.svc.HandleChargeSuccess(context.Background(), ChargeSuccessEvent{
		Reference: seed.order.TrackID, AmountMinor: 145000, Channel: "card",
	})
	if err != nil {
		t.Fatalf("charge success: %v", err)
	}

	order := mustOrder(t, env, seed.order.TrackID)
	if order.PaymentStatus != enums.PaymentStatusSuccess {
		t.Fatalf("payment status = %s", order.PaymentStatus)
	}
	if order.Status != enums.OrderStatusProcessing {
		t.Fatalf("status = %s, want processing", order.Status)
	}
	// bonus 300 * 0.25; fee column itself stays at 300
	if !order.DeliveryFeeBonus.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("delivery bonus = %s, want 75", order.DeliveryFeeBonus)
	}
	if !order.DeliveryFee.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("delivery fee mutated to %s", order.DeliveryFee)
	}
	// 1450 sits under the 2500 threshold, flat fee only
	if !order.GatewayFee.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("gateway fee = %s, want 100", order.GatewayFee)
	}
	if order.PaymentMethod != "card" {
		t.Fatalf("payment method = %q", order.PaymentMethod)
	}
	if env.repo.quantityDeltas["jollof-rice"] != -2 || env.repo.quantityDeltas["beef-suya"] != -1 {
		t.Fatalf("stock deltas = %v", env.repo.quantityDeltas)
	}
	// two vendors plus the customer
	if len(env.notifier.messages) != 3 {
		t.Fatalf("notifications = %d, want 3", len(env.notifier.messages))
	}
}

func TestHandleChargeSuccessReplayIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)

	err := env.svc.HandleChargeSuccess(context.Background(), ChargeSuccessEvent{
		Reference: seed.order.TrackID, AmountMinor: 145000, Channel: "card",
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(env.repo.quantityDeltas) != 0 {
		t.Fatal("replay must not touch stock")
	}
	if len(env.notifier.messages) != 0 {
		t.Fatal("replay must not notify")
	}
}

func TestHandleChargeSuccessShortPayment(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	seed.order.PaymentStatus = enums.PaymentStatusPending
	seed.order.Status = enums.OrderStatusNotStarted
	env.repo.orders[seed.order.ID] = seed.order

	// 100 kobo short of the 145000 total, beyond the 1-minor-unit tolerance
	err := env.svc.HandleChargeSuccess(context.Background(), ChargeSuccessEvent{
		Reference: seed.order.TrackID, AmountMinor: 144900, Channel: "card",
	})
	if err != nil {
		t.Fatalf("short charge: %v", err)
	}

	order := mustOrder(t, env, seed.order.TrackID)
	if order.PaymentStatus != enums.PaymentStatusAwaitingRefundAction {
		t.Fatalf("payment status = %s", order.PaymentStatus)
	}
	if order.Status != enums.OrderStatusFailed {
		t.Fatalf("status = %s, want failed", order.Status)
	}
	if len(env.repo.quantityDeltas) != 0 {
		t.Fatal("short payment must not deduct stock")
	}
}

func TestHandleChargeSuccessToleratesOneMinorUnit(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	seed.order.PaymentStatus = enums.PaymentStatusPending
	seed.order.Status = enums.OrderStatusNotStarted
	env.repo.orders[seed.order.ID] = seed.order

	err := env.svc.HandleChargeSuccess(context.Background(), ChargeSuccessEvent{
		Reference: seed.order.TrackID, AmountMinor: 144999, Channel: "card",
	})
	if err != nil {
		t.Fatalf("charge within tolerance: %v", err)
	}
	if order := mustOrder(t, env, seed.order.TrackID); order.PaymentStatus != enums.PaymentStatusSuccess {
		t.Fatalf("payment status = %s, want success inside tolerance", order.PaymentStatus)
	}
}

func TestHandleChargeSuccessResolvesPreviousTrackID(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	previous := "order_0123456789"
	seed.order.PreviousTrackID = &previous
	seed.order.PaymentStatus = enums.PaymentStatusPending
	seed.order.Status = enums.OrderStatusNotStarted
	env.repo.orders[seed.order.ID] = seed.order

	err := env.svc.HandleChargeSuccess(context.Background(), ChargeSuccessEvent{
		Reference: previous, AmountMinor: 145000, Channel: "bank",
	})
	if err != nil {
		t.Fatalf("charge by previous reference: %v", err)
	}
	if order := mustOrder(t, env, seed.order.TrackID); order.PaymentStatus != enums.PaymentStatusSuccess {
		t.Fatalf("payment status = %s", order.PaymentStatus)
	}
}

func TestHandleChargeSuccessUnknownReference(t *testing.T) {
	env := newTestEnv(t)
	err := env.svc.HandleChargeSuccess(context.Background(), ChargeSuccessEvent{
		Reference: "order_missing000", AmountMinor: 1000,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeOrderNotFound) {
		t.Fatalf("expected ORDER_NOT_FOUND, got %v", err)
	}
}

func TestGatewayFeeSchedule(t *testing.T) {
	cases := []struct {
		amount string
		want   string
	}{
		{"1000", "100"},
		{"2500", "100"},
		{"2500.01", "162.5"},
		{"10000", "350"},
	}
	for _, tc := range cases {
		got := gatewayFee(decimal.RequireFromString(tc.amount))
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("gatewayFee(%s) = %s, want %s", tc.amount, got, tc.want)
		}
	}
}
