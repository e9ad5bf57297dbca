package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/trayfoods/trayfoods-backend/internal/ledger"
	"github.com/trayfoods/trayfoods-backend/internal/notify"
	"github.com/trayfoods/trayfoods-backend/pkg/config"
	"github.com/trayfoods/trayfoods-backend/pkg/db/models"
	"github.com/trayfoods/trayfoods-backend/pkg/enums"
	pkgerrors "github.com/trayfoods/trayfoods-backend/pkg/errors"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
	"github.com/trayfoods/trayfoods-backend/pkg/paystack"
	"github.com/trayfoods/trayfoods-backend/pkg/types"
)

type fakeRepo struct {
	orders   map[uuid.UUID]*models.Order
	stores   map[uuid.UUID]*models.Store
	couriers map[uuid.UUID]*models.Courier
	profiles map[uuid.UUID]*models.Profile
	items    map[string]*models.Item

	quantityDeltas map[string]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders:         map[uuid.UUID]*models.Order{},
		stores:         map[uuid.UUID]*models.Store{},
		couriers:       map[uuid.UUID]*models.Courier{},
		profiles:       map[uuid.UUID]*models.Profile{},
		items:          map[string]*models.Item{},
		quantityDeltas: map[string]int{},
	}
}

func (r *fakeRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *fakeRepo) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByTrackID(ctx context.Context, trackID string) (*models.Order, error) {
	for _, order := range r.orders {
		if order.TrackID == trackID || (order.PreviousTrackID != nil && *order.PreviousTrackID == trackID) {
			cp := *order
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetByTrackIDForUpdate(ctx context.Context, trackID string) (*models.Order, error) {
	return r.GetByTrackID(ctx, trackID)
}

func (r *fakeRepo) Save(ctx context.Context, order *models.Order) error {
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *fakeRepo) ListStalled(ctx context.Context, statuses []enums.OrderStatus, updatedBefore time.Time) ([]models.Order, error) {
	var out []models.Order
	for _, order := range r.orders {
		for _, status := range statuses {
			if order.Status == status && order.UpdatedAt.Before(updatedBefore) {
				out = append(out, *order)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeRepo) GetStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error) {
	if store, ok := r.stores[storeID]; ok {
		cp := *store
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeRepo) GetCourier(ctx context.Context, courierID uuid.UUID) (*models.Courier, error) {
	if courier, ok := r.couriers[courierID]; ok {
		cp := *courier
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeRepo) GetProfile(ctx context.Context, profileID uuid.UUID) (*models.Profile, error) {
	if profile, ok := r.profiles[profileID]; ok {
		cp := *profile
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeRepo) GetItemBySlug(ctx context.Context, slug string) (*models.Item, error) {
	if item, ok := r.items[slug]; ok {
		cp := *item
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeRepo) AdjustItemQuantity(ctx context.Context, slug string, delta int) error {
	r.quantityDeltas[slug] += delta
	if item, ok := r.items[slug]; ok {
		item.Quantity += delta
	}
	return nil
}

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeLedger struct {
	credits []ledger.CreditInput
	refunds []ledger.RefundInput
	holds   []string

	creditErr error
	refundErr error
	holdErr   error
}

func (f *fakeLedger) Credit(ctx context.Context, input ledger.CreditInput) (*models.Transaction, error) {
	if f.creditErr != nil {
		return nil, f.creditErr
	}
	f.credits = append(f.credits, input)
	return &models.Transaction{ID: uuid.New()}, nil
}

func (f *fakeLedger) Refund(ctx context.Context, input ledger.RefundInput) (*models.Transaction, error) {
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	f.refunds = append(f.refunds, input)
	return &models.Transaction{ID: uuid.New()}, nil
}

func (f *fakeLedger) HoldOrderCredit(ctx context.Context, walletID uuid.UUID, orderTrack string) error {
	if f.holdErr != nil {
		return f.holdErr
	}
	f.holds = append(f.holds, orderTrack)
	return nil
}

type fakeCheckoutGateway struct {
	checkouts []paystack.InitializeCheckoutParams
	refunds   []paystack.RefundParams

	checkoutErr error
	refundErr   error
}

func (f *fakeCheckoutGateway) InitializeCheckout(ctx context.Context, params paystack.InitializeCheckoutParams) (*paystack.CheckoutSession, error) {
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	f.checkouts = append(f.checkouts, params)
	return &paystack.CheckoutSession{PaymentURL: "https://checkout.test/" + params.Reference, Reference: params.Reference}, nil
}

func (f *fakeCheckoutGateway) Refund(ctx context.Context, params paystack.RefundParams) (*paystack.RefundResult, error) {
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	f.refunds = append(f.refunds, params)
	return &paystack.RefundResult{Accepted: true}, nil
}

type fakeDispatch struct {
	eligible   bool
	broadcasts []uuid.UUID
	cancels    []uuid.UUID

	broadcastErr error
}

func (f *fakeDispatch) HasEligibleCouriers(ctx context.Context, storeID uuid.UUID, shippingAddress string) (bool, error) {
	return f.eligible, nil
}

func (f *fakeDispatch) Broadcast(ctx context.Context, order *models.Order, storeID uuid.UUID) error {
	if f.broadcastErr != nil {
		return f.broadcastErr
	}
	f.broadcasts = append(f.broadcasts, storeID)
	return nil
}

func (f *fakeDispatch) CancelOpenNotifications(ctx context.Context, orderID uuid.UUID) error {
	f.cancels = append(f.cancels, orderID)
	return nil
}

type fakeNotifier struct {
	messages []notify.Message
	err      error
}

func (f *fakeNotifier) Send(ctx context.Context, msg notify.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

type testEnv struct {
	svc      *service
	repo     *fakeRepo
	ledger   *fakeLedger
	gateway  *fakeCheckoutGateway
	dispatch *fakeDispatch
	notifier *fakeNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:     newFakeRepo(),
		ledger:   &fakeLedger{},
		gateway:  &fakeCheckoutGateway{},
		dispatch: &fakeDispatch{eligible: true},
		notifier: &fakeNotifier{},
	}
	svc, err := NewService(
		env.repo,
		&fakeTxRunner{},
		env.ledger,
		env.gateway,
		env.dispatch,
		env.notifier,
		config.OrdersConfig{ServiceFeeRate: "0.15", DeliveryBonusRate: "0.25", MinDeliveryFee: "100", Currency: "NGN"},
		config.FrontendConfig{BaseURL: "https://app.test"},
		logger.New(logger.Options{ServiceName: "test"}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	env.svc = svc.(*service)
	env.svc.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	return env
}

type seededOrder struct {
	order     *models.Order
	storeA    uuid.UUID
	storeB    uuid.UUID
	vendorA   uuid.UUID
	vendorB   uuid.UUID
	walletA   uuid.UUID
	walletB   uuid.UUID
	customer  uuid.UUID
	courier   uuid.UUID
	courierPr uuid.UUID
	courierW  uuid.UUID
}

// seedPaidOrder builds a paid two-store delivery order: subtotals 600 and
// 400, delivery 300, service fee 150, delivery bonus 75.
func seedPaidOrder(t *testing.T, env *testEnv) *seededOrder {
	t.Helper()
	s := &seededOrder{
		storeA:    uuid.New(),
		storeB:    uuid.New(),
		vendorA:   uuid.New(),
		vendorB:   uuid.New(),
		walletA:   uuid.New(),
		walletB:   uuid.New(),
		customer:  uuid.New(),
		courier:   uuid.New(),
		courierPr: uuid.New(),
		courierW:  uuid.New(),
	}

	env.repo.stores[s.storeA] = &models.Store{ID: s.storeA, ProfileID: s.vendorA, WalletID: s.walletA, Name: "Mama Put", Approved: true, Online: true}
	env.repo.stores[s.storeB] = &models.Store{ID: s.storeB, ProfileID: s.vendorB, WalletID: s.walletB, Name: "Suya Spot", Approved: true, Online: true}
	env.repo.couriers[s.courier] = &models.Courier{ID: s.courier, ProfileID: s.courierPr, WalletID: s.courierW, Approved: true, Availability: enums.AvailabilityOnline}
	env.repo.profiles[s.customer] = &models.Profile{ID: s.customer, Email: "buyer@example.com"}
	env.repo.items["jollof-rice"] = &models.Item{StoreID: s.storeA, Slug: "jollof-rice", Price: decimal.NewFromInt(300), Quantity: 20, Active: true}
	env.repo.items["beef-suya"] = &models.Item{StoreID: s.storeB, Slug: "beef-suya", Price: decimal.NewFromInt(400), Quantity: 20, Active: true}

	order := &models.Order{
		ID:               uuid.New(),
		TrackID:          "order_ab12cd34ef",
		CustomerID:       s.customer,
		Currency:         enums.CurrencyNGN,
		OverallPrice:     decimal.NewFromInt(1000),
		DeliveryFee:      decimal.NewFromInt(300),
		ServiceFee:       decimal.NewFromInt(150),
		DeliveryFeeBonus: decimal.NewFromInt(75),
		FundsRefunded:    decimal.Zero,
		PaymentStatus:    enums.PaymentStatusSuccess,
		Status:           enums.OrderStatusProcessing,
		Shipping:         types.Shipping{Address: "Hostel B, Room 12"},
		Pin:              "a1b2",
		StoresInfos: types.StoreInfos{
			{
				ID: uuid.NewString(), StoreID: s.storeA.String(),
				Items: []types.OrderItem{{Slug: "jollof-rice", Name: "Jollof Rice", Price: decimal.NewFromInt(300), Quantity: 2}},
				Total: types.StoreTotal{Price: decimal.NewFromInt(600)},
				Count: types.StoreCount{Items: 2},
			},
			{
				ID: uuid.NewString(), StoreID: s.storeB.String(),
				Items: []types.OrderItem{{Slug: "beef-suya", Name: "Beef Suya", Price: decimal.NewFromInt(400), Quantity: 1}},
				Total: types.StoreTotal{Price: decimal.NewFromInt(400)},
				Count: types.StoreCount{Items: 1},
			},
		},
		StoresStatus: types.StoresStatus{
			{StoreID: s.storeA.String(), Status: enums.StoreOrderStatusPending},
			{StoreID: s.storeB.String(), Status: enums.StoreOrderStatusPending},
		},
		DeliveryPeople: types.DeliveryPeople{},
	}
	env.repo.orders[order.ID] = order
	s.order = order
	return s
}

func mustOrder(t *testing.T, env *testEnv, trackID string) *models.Order {
	t.Helper()
	order, err := env.repo.GetByTrackID(context.Background(), trackID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order == nil {
		t.Fatalf("order %s not found", trackID)
	}
	return order
}

func TestVendorAcceptCreditsStoreAndAggregates(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)

	err := env.svc.VendorAction(context.Background(), VendorActionInput{
		TrackID: seed.order.TrackID, StoreID: seed.storeA, ActorProfileID: seed.vendorA, Action: VendorActionAccept,
	})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	order := mustOrder(t, env, seed.order.TrackID)
	if status, _ := order.StoresStatus.Get(seed.storeA.String()); status != enums.StoreOrderStatusAccepted {
		t.Fatalf("store status = %s", status)
	}
	if order.Status != enums.OrderStatusPartiallyAccepted {
		t.Fatalf("global status = %s, want partially-accepted while the other store is pending", order.Status)
	}
	if len(env.ledger.credits) != 1 {
		t.Fatalf("expected one credit, got %d", len(env.ledger.credits))
	}
	credit := env.ledger.credits[0]
	if credit.WalletID != seed.walletA {
		t.Fatal("credit went to the wrong wallet")
	}
	if !credit.Amount.Amount.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("credit amount = %s, want 600", credit.Amount.Amount)
	}
	if credit.OrderTrack == nil || *credit.OrderTrack != seed.order.TrackID {
		t.Fatal("credit is not order-linked")
	}
	if credit.Immediate || credit.Bucket == enums.WalletBucketClearedBalance {
		t.Fatal("store earnings must land unsettled")
	}
}

func TestVendorAcceptBothStoresReachesAccepted(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)

	for _, action := range []VendorActionInput{
		{TrackID: seed.order.TrackID, StoreID: seed.storeA, ActorProfileID: seed.vendorA, Action: VendorActionAccept},
		{TrackID: seed.order.TrackID, StoreID: seed.storeB, ActorProfileID: seed.vendorB, Action: VendorActionAccept},
	} {
		if err := env.svc.VendorAction(context.Background(), action); err != nil {
			t.Fatalf("accept: %v", err)
		}
	}
	if order := mustOrder(t, env, seed.order.TrackID); order.Status != enums.OrderStatusAccepted {
		t.Fatalf("global status = %s, want accepted", order.Status)
	}
}

func TestVendorAcceptRevertsWhenCreditFails(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	env.ledger.creditErr = errors.New("ledger down")

	err := env.svc.VendorAction(context.Background(), VendorActionInput{
		TrackID: seed.order.TrackID, StoreID: seed.storeA, ActorProfileID: seed.vendorA, Action: VendorActionAccept,
	})
	if err == nil {
		t.Fatal("expected the credit failure to surface")
	}
	order := mustOrder(t, env, seed.order.TrackID)
	if status, _ := order.StoresStatus.Get(seed.storeA.String()); status != enums.StoreOrderStatusPending {
		t.Fatalf("store status = %s, want pending after revert", status)
	}
}

func TestVendorRejectStartsRefundAndRestocks(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)

	err := env.svc.VendorAction(context.Background(), VendorActionInput{
		TrackID: seed.order.TrackID, StoreID: seed.storeB, ActorProfileID: seed.vendorB, Action: VendorActionReject,
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}

	order := mustOrder(t, env, seed.order.TrackID)
	if status, _ := order.StoresStatus.Get(seed.storeB.String()); status != enums.StoreOrderStatusPendingRefund {
		t.Fatalf("store status = %s, want pending-refund", status)
	}
	if order.PaymentStatus != enums.PaymentStatusPendingRefund {
		t.Fatalf("payment status = %s", order.PaymentStatus)
	}
	if len(env.gateway.refunds) != 1 {
		t.Fatalf("expected one gateway refund, got %d", len(env.gateway.refunds))
	}
	// 400 goods + 300 / 2 delivery share
	want := decimal.NewFromInt(550)
	if !env.gateway.refunds[0].Amount.Amount.Equal(want) {
		t.Fatalf("refund amount = %s, want %s", env.gateway.refunds[0].Amount.Amount, want)
	}
	if env.repo.quantityDeltas["beef-suya"] != 1 {
		t.Fatalf("restock delta = %d, want 1", env.repo.quantityDeltas["beef-suya"])
	}
}

func TestVendorRejectRevertsWhenGatewayRefuses(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	env.gateway.refundErr = pkgerrors.New(pkgerrors.CodeGatewayRejected, "refund rejected")

	err := env.svc.VendorAction(context.Background(), VendorActionInput{
		TrackID: seed.order.TrackID, StoreID: seed.storeB, ActorProfileID: seed.vendorB, Action: VendorActionReject,
	})
	if err == nil {
		t.Fatal("expected the gateway failure to surface")
	}
	order := mustOrder(t, env, seed.order.TrackID)
	if status, _ := order.StoresStatus.Get(seed.storeB.String()); status != enums.StoreOrderStatusPending {
		t.Fatalf("store status = %s, want pending after revert", status)
	}
}

func TestVendorActionRejectsWrongActor(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)

	err := env.svc.VendorAction(context.Background(), VendorActionInput{
		TrackID: seed.order.TrackID, StoreID: seed.storeA, ActorProfileID: seed.vendorB, Action: VendorActionAccept,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestVendorActionRejectsIllegalSourceState(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)

	err := env.svc.VendorAction(context.Background(), VendorActionInput{
		TrackID: seed.order.TrackID, StoreID: seed.storeA, ActorProfileID: seed.vendorA, Action: VendorActionCancel,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeIllegalTransition) {
		t.Fatalf("expected ILLEGAL_TRANSITION, got %v", err)
	}
}

func TestReadyForDeliveryBroadcasts(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)

	accept := VendorActionInput{TrackID: seed.order.TrackID, StoreID: seed.storeA, ActorProfileID: seed.vendorA, Action: VendorActionAccept}
	if err := env.svc.VendorAction(context.Background(), accept); err != nil {
		t.Fatalf("accept: %v", err)
	}
	accept.Action = VendorActionReadyForDelivery
	if err := env.svc.VendorAction(context.Background(), accept); err != nil {
		t.Fatalf("ready-for-delivery: %v", err)
	}
	if len(env.dispatch.broadcasts) != 1 || env.dispatch.broadcasts[0] != seed.storeA {
		t.Fatalf("expected one broadcast for store A, got %v", env.dispatch.broadcasts)
	}
}

func TestBindCourierFirstWins(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	seed.order.StoresStatus = seed.order.StoresStatus.Set(seed.storeA.String(), enums.StoreOrderStatusReadyForDelivery)
	env.repo.orders[seed.order.ID] = seed.order

	if err := env.svc.BindCourier(context.Background(), seed.order.TrackID, seed.courier, seed.storeA); err != nil {
		t.Fatalf("first bind: %v", err)
	}
	err := env.svc.BindCourier(context.Background(), seed.order.TrackID, uuid.New(), seed.storeA)
	if !pkgerrors.HasCode(err, pkgerrors.CodeAlreadyTaken) {
		t.Fatalf("expected ALREADY_TAKEN, got %v", err)
	}
}

func TestBindCourierOnePerOrderStore(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	seed.order.StoresStatus = seed.order.StoresStatus.
		Set(seed.storeA.String(), enums.StoreOrderStatusReadyForDelivery).
		Set(seed.storeB.String(), enums.StoreOrderStatusReadyForDelivery)
	env.repo.orders[seed.order.ID] = seed.order

	if err := env.svc.BindCourier(context.Background(), seed.order.TrackID, seed.courier, seed.storeA); err != nil {
		t.Fatalf("first bind: %v", err)
	}
	err := env.svc.BindCourier(context.Background(), seed.order.TrackID, seed.courier, seed.storeB)
	if !pkgerrors.HasCode(err, pkgerrors.CodeAlreadyTaken) {
		t.Fatalf("expected ALREADY_TAKEN for a second store, got %v", err)
	}
}

func TestCourierDeliveredCreditsClearedShare(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	seed.order.StoresStatus = seed.order.StoresStatus.
		Set(seed.storeA.String(), enums.StoreOrderStatusOutForDelivery).
		Set(seed.storeB.String(), enums.StoreOrderStatusAccepted)
	seed.order.DeliveryPeople = seed.order.DeliveryPeople.Set(seed.courier.String(), seed.storeA.String(), enums.CourierOrderStatusOutForDelivery)
	env.repo.orders[seed.order.ID] = seed.order

	err := env.svc.CourierAction(context.Background(), CourierActionInput{
		TrackID: seed.order.TrackID, CourierID: seed.courier, ActorProfileID: seed.courierPr, Action: CourierActionDelivered,
	})
	if err != nil {
		t.Fatalf("delivered: %v", err)
	}

	order := mustOrder(t, env, seed.order.TrackID)
	if status, _ := order.StoresStatus.Get(seed.storeA.String()); status != enums.StoreOrderStatusDelivered {
		t.Fatalf("store status = %s", status)
	}
	if len(env.ledger.credits) != 1 {
		t.Fatalf("expected one courier credit, got %d", len(env.ledger.credits))
	}
	credit := env.ledger.credits[0]
	if credit.WalletID != seed.courierW {
		t.Fatal("credit went to the wrong wallet")
	}
	// (300 - 75) / 2 stores
	if !credit.Amount.Amount.Equal(decimal.RequireFromString("112.50")) {
		t.Fatalf("courier credit = %s, want 112.50", credit.Amount.Amount)
	}
	if credit.Bucket != enums.WalletBucketClearedBalance {
		t.Fatal("delivery earnings must land in the cleared bucket")
	}
	if len(env.dispatch.cancels) != 1 {
		t.Fatalf("expected open notifications cancelled once, got %d", len(env.dispatch.cancels))
	}
}

func TestConfirmPickupChecksPin(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	seed.order.Shipping = types.Shipping{Address: types.PickupAddress}
	seed.order.StoresStatus = seed.order.StoresStatus.Set(seed.storeA.String(), enums.StoreOrderStatusReadyForPickup)
	env.repo.orders[seed.order.ID] = seed.order

	err := env.svc.ConfirmPickup(context.Background(), seed.order.TrackID, seed.storeA, seed.vendorA, "0000")
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected pin rejection, got %v", err)
	}

	if err := env.svc.ConfirmPickup(context.Background(), seed.order.TrackID, seed.storeA, seed.vendorA, "A1B2"); err != nil {
		t.Fatalf("pickup with correct pin: %v", err)
	}
	order := mustOrder(t, env, seed.order.TrackID)
	if status, _ := order.StoresStatus.Get(seed.storeA.String()); status != enums.StoreOrderStatusPickedUp {
		t.Fatalf("store status = %s", status)
	}
}

func TestCustomerCancelFullRefund(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)

	if err := env.svc.CustomerCancel(context.Background(), seed.order.TrackID, seed.customer); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	order := mustOrder(t, env, seed.order.TrackID)
	if order.Status != enums.OrderStatusCancelled {
		t.Fatalf("global status = %s", order.Status)
	}
	if order.PaymentStatus != enums.PaymentStatusPendingRefund {
		t.Fatalf("payment status = %s", order.PaymentStatus)
	}
	if len(env.gateway.refunds) != 1 {
		t.Fatalf("expected one refund call, got %d", len(env.gateway.refunds))
	}
	if !env.gateway.refunds[0].Amount.Amount.Equal(decimal.NewFromInt(1450)) {
		t.Fatalf("refund amount = %s, want 1450", env.gateway.refunds[0].Amount.Amount)
	}
}

func TestCustomerCancelIllegalBeforePayment(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	seed.order.PaymentStatus = enums.PaymentStatusPending
	seed.order.Status = enums.OrderStatusNotStarted
	env.repo.orders[seed.order.ID] = seed.order

	err := env.svc.CustomerCancel(context.Background(), seed.order.TrackID, seed.customer)
	if !pkgerrors.HasCode(err, pkgerrors.CodeIllegalTransition) {
		t.Fatalf("expected ILLEGAL_TRANSITION, got %v", err)
	}
	if len(env.gateway.refunds) != 0 {
		t.Fatal("an unpaid order must not trigger a refund")
	}
}

func TestCustomerCancelIllegalAfterDecision(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	seed.order.StoresStatus = seed.order.StoresStatus.Set(seed.storeA.String(), enums.StoreOrderStatusAccepted)
	seed.order.Status = Aggregate(seed.order.StoresStatus)
	env.repo.orders[seed.order.ID] = seed.order

	err := env.svc.CustomerCancel(context.Background(), seed.order.TrackID, seed.customer)
	if !pkgerrors.HasCode(err, pkgerrors.CodeIllegalTransition) {
		t.Fatalf("expected ILLEGAL_TRANSITION, got %v", err)
	}
}

func TestCustomerCancelRevertsWhenRefundRejected(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	env.gateway.refundErr = pkgerrors.New(pkgerrors.CodeGatewayRejected, "no")

	if err := env.svc.CustomerCancel(context.Background(), seed.order.TrackID, seed.customer); err == nil {
		t.Fatal("expected the refund failure to surface")
	}
	order := mustOrder(t, env, seed.order.TrackID)
	if order.Status != enums.OrderStatusProcessing || order.PaymentStatus != enums.PaymentStatusSuccess {
		t.Fatalf("order not restored: status=%s payment=%s", order.Status, order.PaymentStatus)
	}
}

func TestSweepStalledFlipsUnservedStores(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	seed.order.StoresStatus = seed.order.StoresStatus.
		Set(seed.storeA.String(), enums.StoreOrderStatusReadyForDelivery).
		Set(seed.storeB.String(), enums.StoreOrderStatusAccepted)
	seed.order.Status = Aggregate(seed.order.StoresStatus)
	seed.order.UpdatedAt = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	env.repo.orders[seed.order.ID] = seed.order

	flipped, err := env.svc.SweepStalled(context.Background(), time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if flipped != 1 {
		t.Fatalf("flipped = %d, want 1", flipped)
	}
	order := mustOrder(t, env, seed.order.TrackID)
	if status, _ := order.StoresStatus.Get(seed.storeA.String()); status != enums.StoreOrderStatusNoDeliveryPerson {
		t.Fatalf("store status = %s", status)
	}
}

func TestMarkSeenAddsProfile(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)

	if err := env.svc.MarkSeen(context.Background(), seed.order.TrackID, seed.vendorA); err != nil {
		t.Fatalf("mark seen: %v", err)
	}
	order := mustOrder(t, env, seed.order.TrackID)
	if !order.ProfilesSeen.Contains(seed.vendorA.String()) {
		t.Fatal("profile not recorded as seen")
	}
}

func TestRegenerateTrackIDKeepsOldReferenceResolvable(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	seed.order.PaymentStatus = enums.PaymentStatusPending
	env.repo.orders[seed.order.ID] = seed.order
	oldTrack := seed.order.TrackID

	updated, err := env.svc.RegenerateTrackID(context.Background(), oldTrack, seed.customer)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if updated.TrackID == oldTrack {
		t.Fatal("track id did not change")
	}
	if updated.PreviousTrackID == nil || *updated.PreviousTrackID != oldTrack {
		t.Fatal("previous track id not retained")
	}
	if updated.PaymentURL == "" {
		t.Fatal("no fresh checkout url")
	}
	if byOld := mustOrder(t, env, oldTrack); byOld.ID != updated.ID {
		t.Fatal("old reference no longer resolves")
	}
}

func TestRegenerateTrackIDOnlyWhileUnpaid(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)

	_, err := env.svc.RegenerateTrackID(context.Background(), seed.order.TrackID, seed.customer)
	if !pkgerrors.HasCode(err, pkgerrors.CodeIllegalTransition) {
		t.Fatalf("expected ILLEGAL_TRANSITION, got %v", err)
	}
}

func TestRolesDerivation(t *testing.T) {
	env := newTestEnv(t)
	seed := seedPaidOrder(t, env)
	seed.order.DeliveryPeople = seed.order.DeliveryPeople.Set(seed.courier.String(), seed.storeA.String(), enums.CourierOrderStatusAccepted)
	env.repo.orders[seed.order.ID] = seed.order

	roles, err := env.svc.Roles(context.Background(), seed.order, seed.vendorA)
	if err != nil {
		t.Fatalf("roles: %v", err)
	}
	if !roles.Has(enums.ActorRoleVendor) || roles.Has(enums.ActorRoleCustomer) {
		t.Fatalf("vendor roles wrong: %+v", roles)
	}

	roles, err = env.svc.Roles(context.Background(), seed.order, seed.courierPr)
	if err != nil {
		t.Fatalf("roles: %v", err)
	}
	if !roles.Has(enums.ActorRoleDeliveryPerson) {
		t.Fatalf("courier roles wrong: %+v", roles)
	}

	roles, err = env.svc.Roles(context.Background(), seed.order, uuid.New())
	if err != nil {
		t.Fatalf("roles: %v", err)
	}
	if !roles.Empty() {
		t.Fatalf("stranger should have no roles: %+v", roles)
	}
}
