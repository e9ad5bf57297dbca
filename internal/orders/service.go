package orders

import (
	"context"
	"fmt"
	"strings"
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
	"github.com/trayfoods/trayfoods-backend/pkg/money"
	"github.com/trayfoods/trayfoods-backend/pkg/paystack"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledgerService interface {
	Credit(ctx context.Context, input ledger.CreditInput) (*models.Transaction, error)
	Refund(ctx context.Context, input ledger.RefundInput) (*models.Transaction, error)
	HoldOrderCredit(ctx context.Context, walletID uuid.UUID, orderTrack string) error
}

type checkoutGateway interface {
	InitializeCheckout(ctx context.Context, params paystack.InitializeCheckoutParams) (*paystack.CheckoutSession, error)
	Refund(ctx context.Context, params paystack.RefundParams) (*paystack.RefundResult, error)
}

// courierDispatcher is wired to the dispatch service at startup.
type courierDispatcher interface {
	HasEligibleCouriers(ctx context.Context, storeID uuid.UUID, shippingAddress string) (bool, error)
	Broadcast(ctx context.Context, order *models.Order, storeID uuid.UUID) error
	CancelOpenNotifications(ctx context.Context, orderID uuid.UUID) error
}

type notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}

// VendorAction is a vendor-initiated per-store transition.
type VendorAction string

const (
	VendorActionAccept           VendorAction = "accept"
	VendorActionReject           VendorAction = "reject"
	VendorActionCancel           VendorAction = "cancel"
	VendorActionReadyForPickup   VendorAction = "ready-for-pickup"
	VendorActionReadyForDelivery VendorAction = "ready-for-delivery"
)

// VendorActionInput identifies the order, the acting store, and the move.
type VendorActionInput struct {
	TrackID        string
	StoreID        uuid.UUID
	ActorProfileID uuid.UUID
	Action         VendorAction
}

// CourierAction is a courier-initiated per-store transition.
type CourierAction string

const (
	CourierActionOutForDelivery CourierAction = "out-for-delivery"
	CourierActionDelivered      CourierAction = "delivered"
)

// CourierActionInput identifies the order, the acting courier, and the move.
type CourierActionInput struct {
	TrackID        string
	CourierID      uuid.UUID
	ActorProfileID uuid.UUID
	Action         CourierAction
}

// Service drives the whole order lifecycle: composition, the charge
// pipeline, per-store and per-courier transitions, and the refund
// bookkeeping behind the gateway webhooks.
type Service interface {
	Compose(ctx context.Context, input ComposeInput) (*models.Order, error)
	GetByTrackID(ctx context.Context, trackID string) (*models.Order, error)
	RegenerateTrackID(ctx context.Context, trackID string, customerID uuid.UUID) (*models.Order, error)
	MarkSeen(ctx context.Context, trackID string, profileID uuid.UUID) error
	Roles(ctx context.Context, order *models.Order, profileID uuid.UUID) (RoleSet, error)

	HandleChargeSuccess(ctx context.Context, event ChargeSuccessEvent) error
	HandleRefundProcessed(ctx context.Context, reference string, amount money.Money) error
	HandleRefundFailed(ctx context.Context, reference string, amount money.Money) error

	VendorAction(ctx context.Context, input VendorActionInput) error
	ConfirmPickup(ctx context.Context, trackID string, storeID, actorProfileID uuid.UUID, pin string) error
	CustomerCancel(ctx context.Context, trackID string, customerID uuid.UUID) error
	CourierAction(ctx context.Context, input CourierActionInput) error
	BindCourier(ctx context.Context, trackID string, courierID, storeID uuid.UUID) error
	MarkStoreNoCourier(ctx context.Context, trackID string, storeID uuid.UUID) error

	SweepStalled(ctx context.Context, updatedBefore time.Time) (int, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	ledger   ledgerService
	gateway  checkoutGateway
	dispatch courierDispatcher
	notifier notifier
	logger   *logger.Logger

	serviceFeeRate decimal.Decimal
	bonusRate      decimal.Decimal
	minDeliveryFee decimal.Decimal
	currency       enums.Currency
	frontend       config.FrontendConfig

	randHex randomHex
	now     func() time.Time
}

// NewService wires the order engine with its collaborators.
func NewService(
	repo Repository,
	tx txRunner,
	ledgerSvc ledgerService,
	gateway checkoutGateway,
	dispatch courierDispatcher,
	notif notifier,
	ordersCfg config.OrdersConfig,
	frontend config.FrontendConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("checkout gateway required")
	}
	if dispatch == nil {
		return nil, fmt.Errorf("courier dispatcher required")
	}
	if notif == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	serviceFeeRate, err := decimal.NewFromString(ordersCfg.ServiceFeeRate)
	if err != nil {
		return nil, fmt.Errorf("parsing service fee rate: %w", err)
	}
	bonusRate, err := decimal.NewFromString(ordersCfg.DeliveryBonusRate)
	if err != nil {
		return nil, fmt.Errorf("parsing delivery bonus rate: %w", err)
	}
	minDeliveryFee, err := decimal.NewFromString(ordersCfg.MinDeliveryFee)
	if err != nil {
		return nil, fmt.Errorf("parsing minimum delivery fee: %w", err)
	}
	currency := enums.Currency(ordersCfg.Currency)
	if !currency.IsValid() {
		return nil, fmt.Errorf("invalid orders currency %q", ordersCfg.Currency)
	}

	return &service{
		repo:           repo,
		tx:             tx,
		ledger:         ledgerSvc,
		gateway:        gateway,
		dispatch:       dispatch,
		notifier:       notif,
		logger:         logg,
		serviceFeeRate: serviceFeeRate,
		bonusRate:      bonusRate,
		minDeliveryFee: minDeliveryFee,
		currency:       currency,
		frontend:       frontend,
		randHex:        cryptoRandomHex,
		now:            func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) GetByTrackID(ctx context.Context, trackID string) (*models.Order, error) {
	order, err := s.repo.GetByTrackID(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
	}
	if err := validateOrderVectors(order); err != nil {
		return nil, err
	}
	return order, nil
}

// validateOrderVectors guards every read of the jsonb vectors; a corrupt
// blob must never reach the state machine.
func validateOrderVectors(order *models.Order) error {
	if err := order.StoresInfos.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt stores_infos vector")
	}
	if err := order.StoresStatus.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt stores_status vector")
	}
	if err := order.DeliveryPeople.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt delivery_people vector")
	}
	return nil
}

func (s *service) appendActivity(order *models.Order, title, description, activityType string) {
	order.ActivitiesLog = order.ActivitiesLog.Append(title, description, activityType, s.now())
}

func (s *service) VendorAction(ctx context.Context, input VendorActionInput) error {
	var (
		creditWallet uuid.UUID
		creditAmount decimal.Decimal
		customerID   uuid.UUID
		trackID      string
		doCredit     bool
		doBroadcast  bool
		notifyPickup bool
		pin          string
	)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.GetByTrackIDForUpdate(ctx, input.TrackID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
		}
		if err := validateOrderVectors(order); err != nil {
			return err
		}

		store, err := repo.GetStore(ctx, input.StoreID)
		if err != nil {
			return err
		}
		if store == nil || store.ProfileID != input.ActorProfileID {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is not the vendor of this store")
		}
		current, ok := order.StoresStatus.Get(input.StoreID.String())
		if !ok {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "store is not part of this order")
		}
		if order.PaymentStatus != enums.PaymentStatusSuccess {
			return pkgerrors.Newf(pkgerrors.CodeIllegalTransition, "order payment is %s, decisions need a successful charge", order.PaymentStatus)
		}

		switch input.Action {
		case VendorActionAccept:
			if current != enums.StoreOrderStatusPending {
				return illegalFrom(current)
			}
			order.StoresStatus = order.StoresStatus.Set(input.StoreID.String(), enums.StoreOrderStatusAccepted)
			s.appendActivity(order, "Store accepted", fmt.Sprintf("Store %s accepted its part of the order", store.Name), "store_accepted")
			creditWallet = store.WalletID
			info, found := order.StoresInfos.ByStore(input.StoreID.String())
			if !found {
				return pkgerrors.New(pkgerrors.CodeInternal, "store missing from stores_infos")
			}
			creditAmount = info.GrossTotal()
			doCredit = true

		case VendorActionReject:
			if current != enums.StoreOrderStatusPending {
				return illegalFrom(current)
			}
			order.StoresStatus = order.StoresStatus.Set(input.StoreID.String(), enums.StoreOrderStatusRejected)
			s.appendActivity(order, "Store rejected", fmt.Sprintf("Store %s rejected its part of the order", store.Name), "store_rejected")

		case VendorActionCancel:
			if current != enums.StoreOrderStatusAccepted {
				return illegalFrom(current)
			}
			order.StoresStatus = order.StoresStatus.Set(input.StoreID.String(), enums.StoreOrderStatusCancelled)
			s.appendActivity(order, "Store cancelled", fmt.Sprintf("Store %s cancelled after accepting", store.Name), "store_cancelled")

		case VendorActionReadyForDelivery:
			if order.Shipping.IsPickup() {
				return pkgerrors.New(pkgerrors.CodeIllegalTransition, "pickup orders cannot be marked ready for delivery")
			}
			if current != enums.StoreOrderStatusAccepted {
				return illegalFrom(current)
			}
			order.StoresStatus = order.StoresStatus.Set(input.StoreID.String(), enums.StoreOrderStatusReadyForDelivery)
			s.appendActivity(order, "Ready for delivery", fmt.Sprintf("Store %s is ready for a courier", store.Name), "store_ready")
			doBroadcast = true

		case VendorActionReadyForPickup:
			if !order.Shipping.IsPickup() {
				return pkgerrors.New(pkgerrors.CodeIllegalTransition, "delivery orders cannot be marked ready for pickup")
			}
			if current != enums.StoreOrderStatusAccepted {
				return illegalFrom(current)
			}
			order.StoresStatus = order.StoresStatus.Set(input.StoreID.String(), enums.StoreOrderStatusReadyForPickup)
			s.appendActivity(order, "Ready for pickup", fmt.Sprintf("Store %s has the order ready", store.Name), "store_ready")
			notifyPickup = true
			pin = order.Pin

		default:
			return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown vendor action %q", input.Action)
		}

		order.Status = Aggregate(order.StoresStatus)
		customerID = order.CustomerID
		trackID = order.TrackID
		return repo.Save(ctx, order)
	})
	if err != nil {
		return err
	}

	logCtx := s.logger.WithTrackID(ctx, trackID)

	if doCredit {
		track := trackID
		if _, err := s.ledger.Credit(ctx, ledger.CreditInput{
			WalletID:    creditWallet,
			Amount:      money.New(creditAmount, string(s.currency)),
			Title:       "Order earnings",
			Description: fmt.Sprintf("Earnings for order %s", trackID),
			OrderTrack:  &track,
		}); err != nil {
			s.logger.Error(logCtx, "store credit failed, reverting acceptance", err)
			if revertErr := s.revertStoreStatus(ctx, trackID, input.StoreID, enums.StoreOrderStatusPending); revertErr != nil {
				s.logger.Error(logCtx, "failed to revert store acceptance", revertErr)
			}
			return err
		}
	}

	switch input.Action {
	case VendorActionReject, VendorActionCancel:
		if err := s.initiateStoreRefund(ctx, trackID, input.StoreID); err != nil {
			s.logger.Error(logCtx, "store refund initiation failed, reverting decision", err)
			previous := enums.StoreOrderStatusPending
			if input.Action == VendorActionCancel {
				previous = enums.StoreOrderStatusAccepted
			}
			if revertErr := s.revertStoreStatus(ctx, trackID, input.StoreID, previous); revertErr != nil {
				s.logger.Error(logCtx, "failed to revert store decision", revertErr)
			}
			return err
		}
	}

	if doBroadcast {
		order, err := s.GetByTrackID(ctx, trackID)
		if err != nil {
			return err
		}
		if err := s.dispatch.Broadcast(ctx, order, input.StoreID); err != nil {
			s.logger.Error(logCtx, "courier broadcast failed", err)
		}
	}
	if notifyPickup {
		s.notify(ctx, customerID, "Order ready for pickup", fmt.Sprintf("Show pin %s at the counter to collect order %s", strings.ToUpper(pin), trackID))
	}
	return nil
}

// revertStoreStatus is the compensating write used when post-commit
// bookkeeping fails and the transition has to be unwound.
func (s *service) revertStoreStatus(ctx context.Context, trackID string, storeID uuid.UUID, previous enums.StoreOrderStatus) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.GetByTrackIDForUpdate(ctx, trackID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
		}
		order.StoresStatus = order.StoresStatus.Set(storeID.String(), previous)
		order.Status = Aggregate(order.StoresStatus)
		return repo.Save(ctx, order)
	})
}

func (s *service) ConfirmPickup(ctx context.Context, trackID string, storeID, actorProfileID uuid.UUID, pin string) error {
	var customerID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.GetByTrackIDForUpdate(ctx, trackID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
		}
		store, err := repo.GetStore(ctx, storeID)
		if err != nil {
			return err
		}
		if store == nil || store.ProfileID != actorProfileID {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is not the vendor of this store")
		}
		current, ok := order.StoresStatus.Get(storeID.String())
		if !ok {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "store is not part of this order")
		}
		if current != enums.StoreOrderStatusReadyForPickup {
			return illegalFrom(current)
		}
		if !strings.EqualFold(order.Pin, pin) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "pickup pin does not match")
		}

		order.StoresStatus = order.StoresStatus.Set(storeID.String(), enums.StoreOrderStatusPickedUp)
		order.Status = Aggregate(order.StoresStatus)
		s.appendActivity(order, "Order picked up", fmt.Sprintf("Customer collected from store %s", store.Name), "order_picked_up")
		customerID = order.CustomerID
		return repo.Save(ctx, order)
	})
	if err != nil {
		return err
	}
	s.notify(ctx, customerID, "Order collected", fmt.Sprintf("Order %s was picked up. Enjoy!", trackID))
	return nil
}

// CustomerCancel is legal only while every store is still undecided. The
// gateway refund runs between the two commits; a rejected refund rolls
// the cancellation back.
func (s *service) CustomerCancel(ctx context.Context, trackID string, customerID uuid.UUID) error {
	var refundTotal decimal.Decimal
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.GetByTrackIDForUpdate(ctx, trackID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
		}
		if order.CustomerID != customerID {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is not the customer of this order")
		}
		if order.PaymentStatus != enums.PaymentStatusSuccess {
			return pkgerrors.Newf(pkgerrors.CodeIllegalTransition, "payment is %s, cancellation is only possible after a successful charge", order.PaymentStatus)
		}
		if order.Status != enums.OrderStatusProcessing {
			return pkgerrors.Newf(pkgerrors.CodeIllegalTransition, "order is %s, cancellation is only possible before any store decides", order.Status)
		}

		for _, entry := range order.StoresStatus {
			order.StoresStatus = order.StoresStatus.Set(entry.StoreID, enums.StoreOrderStatusCancelled)
		}
		order.Status = Aggregate(order.StoresStatus)
		order.PaymentStatus = enums.PaymentStatusPendingRefund
		s.appendActivity(order, "Order cancelled", "Customer cancelled before any store accepted", "order_cancelled")
		refundTotal = order.OverallPrice.Add(order.DeliveryFee).Add(order.ServiceFee)
		return repo.Save(ctx, order)
	})
	if err != nil {
		return err
	}

	if _, err := s.gateway.Refund(ctx, paystack.RefundParams{
		TransactionReference: trackID,
		Amount:               money.New(refundTotal, string(s.currency)),
	}); err != nil {
		logCtx := s.logger.WithTrackID(ctx, trackID)
		s.logger.Error(logCtx, "full refund initiation failed, restoring order", err)
		if revertErr := s.revertCustomerCancel(ctx, trackID); revertErr != nil {
			s.logger.Error(logCtx, "failed to restore cancelled order", revertErr)
		}
		return err
	}

	s.notify(ctx, customerID, "Order cancelled", fmt.Sprintf("Order %s was cancelled and a full refund is on its way", trackID))
	return nil
}

func (s *service) revertCustomerCancel(ctx context.Context, trackID string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.GetByTrackIDForUpdate(ctx, trackID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
		}
		for _, entry := range order.StoresStatus {
			order.StoresStatus = order.StoresStatus.Set(entry.StoreID, enums.StoreOrderStatusPending)
		}
		order.Status = Aggregate(order.StoresStatus)
		order.PaymentStatus = enums.PaymentStatusSuccess
		return repo.Save(ctx, order)
	})
}

func (s *service) CourierAction(ctx context.Context, input CourierActionInput) error {
	var (
		customerID   uuid.UUID
		creditWallet uuid.UUID
		creditAmount decimal.Decimal
		orderID      uuid.UUID
		doCredit     bool
	)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.GetByTrackIDForUpdate(ctx, input.TrackID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
		}
		if err := validateOrderVectors(order); err != nil {
			return err
		}

		courier, err := repo.GetCourier(ctx, input.CourierID)
		if err != nil {
			return err
		}
		if courier == nil || courier.ProfileID != input.ActorProfileID {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is not this courier")
		}
		entry, ok := order.DeliveryPeople.ForCourier(input.CourierID.String())
		if !ok || entry.Status == enums.CourierOrderStatusRejected {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "courier is not engaged on this order")
		}
		storeStatus, ok := order.StoresStatus.Get(entry.StoreID)
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInternal, "courier bound to a store outside the order")
		}

		switch input.Action {
		case CourierActionOutForDelivery:
			if entry.Status != enums.CourierOrderStatusAccepted {
				return pkgerrors.Newf(pkgerrors.CodeIllegalTransition, "courier is %s, expected accepted", entry.Status)
			}
			if storeStatus != enums.StoreOrderStatusReadyForDelivery {
				return illegalFrom(storeStatus)
			}
			order.DeliveryPeople = order.DeliveryPeople.Set(entry.ID, entry.StoreID, enums.CourierOrderStatusOutForDelivery)
			order.StoresStatus = order.StoresStatus.Set(entry.StoreID, enums.StoreOrderStatusOutForDelivery)
			s.appendActivity(order, "Out for delivery", "A courier picked up the package", "order_out_for_delivery")

		case CourierActionDelivered:
			if entry.Status != enums.CourierOrderStatusOutForDelivery {
				return pkgerrors.Newf(pkgerrors.CodeIllegalTransition, "courier is %s, expected out-for-delivery", entry.Status)
			}
			if storeStatus != enums.StoreOrderStatusOutForDelivery {
				return illegalFrom(storeStatus)
			}
			order.DeliveryPeople = order.DeliveryPeople.Set(entry.ID, entry.StoreID, enums.CourierOrderStatusDelivered)
			order.StoresStatus = order.StoresStatus.Set(entry.StoreID, enums.StoreOrderStatusDelivered)
			s.appendActivity(order, "Delivered", "The courier delivered the package", "order_delivered")

			creditWallet = courier.WalletID
			creditAmount = s.courierShare(order)
			doCredit = true

		default:
			return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown courier action %q", input.Action)
		}

		order.Status = Aggregate(order.StoresStatus)
		customerID = order.CustomerID
		orderID = order.ID
		return repo.Save(ctx, order)
	})
	if err != nil {
		return err
	}

	if doCredit {
		track := input.TrackID
		if _, err := s.ledger.Credit(ctx, ledger.CreditInput{
			WalletID:    creditWallet,
			Amount:      money.New(creditAmount, string(s.currency)),
			Title:       "Delivery earnings",
			Description: fmt.Sprintf("Delivery fee for order %s", input.TrackID),
			OrderTrack:  &track,
			Bucket:      enums.WalletBucketClearedBalance,
		}); err != nil {
			s.logger.Error(s.logger.WithTrackID(ctx, input.TrackID), "courier credit failed", err)
			return err
		}
		if err := s.dispatch.CancelOpenNotifications(ctx, orderID); err != nil {
			s.logger.Error(s.logger.WithTrackID(ctx, input.TrackID), "cancelling open delivery notifications failed", err)
		}
		s.notify(ctx, customerID, "Order delivered", fmt.Sprintf("Order %s has been delivered", input.TrackID))
	}
	return nil
}

// courierShare is each courier's cut: the delivery fee less the platform
// bonus, split across the stores that need delivering.
func (s *service) courierShare(order *models.Order) decimal.Decimal {
	stores := decimal.NewFromInt(int64(len(order.StoresInfos)))
	payable := order.DeliveryFee.Sub(order.DeliveryFeeBonus)
	return money.RoundHalfUp(payable.Div(stores))
}

// BindCourier records the first courier to accept a store's delivery.
// Later acceptances for the same store fail, as does a courier trying to
// take a second store on the same order.
func (s *service) BindCourier(ctx context.Context, trackID string, courierID, storeID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.GetByTrackIDForUpdate(ctx, trackID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
		}
		status, ok := order.StoresStatus.Get(storeID.String())
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "store is not part of this order")
		}
		if status != enums.StoreOrderStatusReadyForDelivery {
			return illegalFrom(status)
		}
		if _, taken := order.DeliveryPeople.ForStore(storeID.String()); taken {
			return pkgerrors.New(pkgerrors.CodeAlreadyTaken, "another courier already took this delivery")
		}
		if existing, engaged := order.DeliveryPeople.ForCourier(courierID.String()); engaged && existing.Status != enums.CourierOrderStatusRejected {
			return pkgerrors.New(pkgerrors.CodeAlreadyTaken, "courier already delivers another store on this order")
		}

		order.DeliveryPeople = order.DeliveryPeople.Set(courierID.String(), storeID.String(), enums.CourierOrderStatusAccepted)
		s.appendActivity(order, "Courier assigned", "A courier accepted the delivery", "courier_assigned")
		return repo.Save(ctx, order)
	})
}

// MarkStoreNoCourier flips one ready-for-delivery store to
// no-delivery-person after a broadcast reached nobody.
func (s *service) MarkStoreNoCourier(ctx context.Context, trackID string, storeID uuid.UUID) error {
	var customerID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.GetByTrackIDForUpdate(ctx, trackID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
		}
		current, ok := order.StoresStatus.Get(storeID.String())
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "store is not part of this order")
		}
		if current != enums.StoreOrderStatusReadyForDelivery {
			return illegalFrom(current)
		}
		order.StoresStatus = order.StoresStatus.Set(storeID.String(), enums.StoreOrderStatusNoDeliveryPerson)
		order.Status = Aggregate(order.StoresStatus)
		s.appendActivity(order, "No couriers reached", "No courier could be notified about the delivery", "no_delivery_person")
		customerID = order.CustomerID
		return repo.Save(ctx, order)
	})
	if err != nil {
		return err
	}
	s.notify(ctx, customerID, "Delivery delayed", fmt.Sprintf("We could not reach a courier for order %s", trackID))
	return nil
}

// SweepStalled flips ready-for-delivery stores that never found a courier
// to no-delivery-person and notifies the customers.
func (s *service) SweepStalled(ctx context.Context, updatedBefore time.Time) (int, error) {
	stalled, err := s.repo.ListStalled(ctx, []enums.OrderStatus{
		enums.OrderStatusReadyForDelivery,
		enums.OrderStatusPartiallyReadyForDelivery,
		enums.OrderStatusNoDeliveryPeople,
	}, updatedBefore)
	if err != nil {
		return 0, err
	}

	flipped := 0
	for _, candidate := range stalled {
		trackID := candidate.TrackID
		var customerID uuid.UUID
		changed := false
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			order, err := repo.GetByTrackIDForUpdate(ctx, trackID)
			if err != nil {
				return err
			}
			if order == nil {
				return nil
			}
			for _, entry := range order.StoresStatus {
				if entry.Status != enums.StoreOrderStatusReadyForDelivery {
					continue
				}
				if _, taken := order.DeliveryPeople.ForStore(entry.StoreID); taken {
					continue
				}
				order.StoresStatus = order.StoresStatus.Set(entry.StoreID, enums.StoreOrderStatusNoDeliveryPerson)
				changed = true
			}
			if !changed {
				return nil
			}
			order.Status = Aggregate(order.StoresStatus)
			s.appendActivity(order, "No couriers found", "No courier accepted the delivery in time", "no_delivery_person")
			customerID = order.CustomerID
			return repo.Save(ctx, order)
		})
		if err != nil {
			return flipped, err
		}
		if changed {
			flipped++
			s.notify(ctx, customerID, "Delivery delayed", fmt.Sprintf("We could not find a courier for order %s yet", trackID))
		}
	}
	return flipped, nil
}

func (s *service) MarkSeen(ctx context.Context, trackID string, profileID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.GetByTrackIDForUpdate(ctx, trackID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
		}
		order.ProfilesSeen = order.ProfilesSeen.Add(profileID.String())
		return repo.Save(ctx, order)
	})
}

// RegenerateTrackID mints a fresh reference for an unpaid order so the
// customer can retry checkout; the old id keeps resolving via
// previous_track_id.
func (s *service) RegenerateTrackID(ctx context.Context, trackID string, customerID uuid.UUID) (*models.Order, error) {
	order, err := s.GetByTrackID(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is not the customer of this order")
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		return nil, pkgerrors.Newf(pkgerrors.CodeIllegalTransition, "payment is %s, only unpaid orders can regenerate", order.PaymentStatus)
	}

	newTrackID, err := s.newTrackID(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := s.repo.GetProfile(ctx, order.CustomerID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order customer profile missing")
	}

	total := order.OverallPrice.Add(order.DeliveryFee).Add(order.ServiceFee)
	session, err := s.gateway.InitializeCheckout(ctx, paystack.InitializeCheckoutParams{
		Amount:      money.New(total, string(s.currency)),
		Reference:   newTrackID,
		Email:       profile.Email,
		CallbackURL: s.frontend.CheckoutCallbackURL(newTrackID),
	})
	if err != nil {
		return nil, err
	}

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.GetByTrackIDForUpdate(ctx, trackID)
		if err != nil {
			return err
		}
		if locked == nil {
			return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
		}
		previous := locked.TrackID
		locked.PreviousTrackID = &previous
		locked.TrackID = newTrackID
		locked.PaymentURL = session.PaymentURL
		s.appendActivity(locked, "Checkout link refreshed", "A new payment reference was generated", "track_id_regenerated")
		updated = locked
		return repo.Save(ctx, locked)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) notify(ctx context.Context, profileID uuid.UUID, title, body string) {
	if profileID == uuid.Nil {
		return
	}
	if err := s.notifier.Send(ctx, notify.Message{ProfileID: profileID, Title: title, Body: body}); err != nil {
		s.logger.Warn(s.logger.WithField(ctx, "profile_id", profileID.String()), "notification delivery failed")
	}
}

func illegalFrom(current enums.StoreOrderStatus) error {
	return pkgerrors.Newf(pkgerrors.CodeIllegalTransition, "store is %s", current)
}
