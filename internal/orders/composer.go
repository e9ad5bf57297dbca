package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/trayfoods/trayfoods-backend/pkg/db/models"
	"github.com/trayfoods/trayfoods-backend/pkg/enums"
	pkgerrors "github.com/trayfoods/trayfoods-backend/pkg/errors"
	"github.com/trayfoods/trayfoods-backend/pkg/money"
	"github.com/trayfoods/trayfoods-backend/pkg/paystack"
	"github.com/trayfoods/trayfoods-backend/pkg/types"
)

// Compose validates a cart against the live catalog, freezes the prices,
// and creates the order with a hosted checkout session.
func (s *service) Compose(ctx context.Context, input ComposeInput) (*models.Order, error) {
	if err := validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid compose input")
	}
	if err := input.StoresInfos.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stores_infos")
	}
	if err := input.Shipping.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping")
	}

	customer, err := s.repo.GetProfile(ctx, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer profile does not exist")
	}

	for _, info := range input.StoresInfos {
		if err := s.validateStoreSlice(ctx, info, customer); err != nil {
			return nil, err
		}
	}

	overall := decimal.Zero
	for _, info := range input.StoresInfos {
		overall = overall.Add(info.GrossTotal())
	}
	if !overall.Equal(input.OverallPrice) {
		return nil, pkgerrors.Newf(pkgerrors.CodePriceIntegrity,
			"declared overall price %s does not match store totals %s",
			input.OverallPrice.StringFixed(2), overall.StringFixed(2))
	}

	serviceFee := money.RoundHalfUp(overall.Mul(s.serviceFeeRate))
	deliveryFee := decimal.Zero
	if !input.Shipping.IsPickup() {
		deliveryFee = money.CeilToUnit(input.DeliveryFee)
		if deliveryFee.LessThan(s.minDeliveryFee) {
			deliveryFee = s.minDeliveryFee
		}
	}

	trackID, err := s.newTrackID(ctx)
	if err != nil {
		return nil, err
	}
	pin, err := s.newPin()
	if err != nil {
		return nil, err
	}

	storesStatus := make(types.StoresStatus, 0, len(input.StoresInfos))
	couriersMissing := 0
	for _, info := range input.StoresInfos {
		status := enums.StoreOrderStatusPending
		if !input.Shipping.IsPickup() {
			storeID, parseErr := uuid.Parse(info.StoreID)
			if parseErr != nil {
				return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "store id %q is not a uuid", info.StoreID)
			}
			available, availErr := s.dispatch.HasEligibleCouriers(ctx, storeID, input.Shipping.Address)
			if availErr != nil {
				return nil, availErr
			}
			if !available {
				status = enums.StoreOrderStatusNoDeliveryPerson
				couriersMissing++
			}
		}
		storesStatus = append(storesStatus, types.StoreStatus{StoreID: info.StoreID, Status: status})
	}

	// The global status stays not-started until charge.success flips it;
	// only the no-courier outcome is visible before payment.
	undeliverable := couriersMissing == len(input.StoresInfos) && !input.Shipping.IsPickup()
	status := enums.OrderStatusNotStarted
	if undeliverable {
		status = enums.OrderStatusNoDeliveryPeople
	}

	order := &models.Order{
		TrackID:            trackID,
		CustomerID:         input.CustomerID,
		Currency:           s.currency,
		OverallPrice:       overall,
		DeliveryFee:        deliveryFee,
		ServiceFee:         serviceFee,
		PaymentStatus:      enums.PaymentStatusPending,
		Status:             status,
		Shipping:           input.Shipping,
		StoresInfos:        input.StoresInfos,
		StoresStatus:       storesStatus,
		DeliveryPeople:     types.DeliveryPeople{},
		StoreNotes:         input.StoreNotes,
		DeliveryPersonNote: input.DeliveryPersonNote,
		Pin:                pin,
		ActivitiesLog:      types.ActivitiesLog{},
		ProfilesSeen:       types.ProfilesSeen{},
	}
	s.appendActivity(order, "Order created", "The order was composed and is awaiting payment", "order_created")

	if !undeliverable {
		total := overall.Add(deliveryFee).Add(serviceFee)
		session, err := s.gateway.InitializeCheckout(ctx, paystack.InitializeCheckoutParams{
			Amount:      money.New(total, string(s.currency)),
			Reference:   trackID,
			Email:       customer.Email,
			CallbackURL: s.frontend.CheckoutCallbackURL(trackID),
		})
		if err != nil {
			return nil, err
		}
		order.PaymentURL = session.PaymentURL
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	if undeliverable {
		s.notify(ctx, input.CustomerID, "No couriers available",
			fmt.Sprintf("We could not find a courier for order %s right now", trackID))
	}
	return order, nil
}

// validateStoreSlice checks one store's frozen slice against the live
// catalog and the store's operating constraints.
func (s *service) validateStoreSlice(ctx context.Context, info types.StoreInfo, customer *models.Profile) error {
	storeID, err := uuid.Parse(info.StoreID)
	if err != nil {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "store id %q is not a uuid", info.StoreID)
	}
	store, err := s.repo.GetStore(ctx, storeID)
	if err != nil {
		return err
	}
	if store == nil {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "store %s does not exist", info.StoreID)
	}
	if !store.Approved || store.Suspended {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "store %s is not taking orders", store.Name)
	}
	if !store.Online {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "store %s is offline", store.Name)
	}

	open, err := s.storeOpenNow(store)
	if err != nil {
		return err
	}
	if !open {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "store %s is closed right now", store.Name)
	}

	if store.GenderPreference != nil && *store.GenderPreference != "" {
		if customer.Gender == nil || *customer.Gender != *store.GenderPreference {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "store %s does not serve this customer", store.Name)
		}
	}

	lineTotal := decimal.Zero
	plateTotal := decimal.Zero
	optionsTotal := decimal.Zero
	for _, line := range info.Items {
		item, err := s.repo.GetItemBySlug(ctx, line.Slug)
		if err != nil {
			return err
		}
		if item == nil || item.DeletedAt != nil {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "item %q is no longer available", line.Slug)
		}
		if !item.Active {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "item %q is not active", line.Slug)
		}
		if item.StoreID != storeID {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "item %q belongs to a different store", line.Slug)
		}
		lineTotal = lineTotal.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		plateTotal = plateTotal.Add(line.PlatePrice)
		optionsTotal = optionsTotal.Add(line.OptionGroupsPrice)
	}

	if !lineTotal.Equal(info.Total.Price) || !plateTotal.Equal(info.Total.PlatePrice) || !optionsTotal.Equal(info.Total.OptionGroupsPrice) {
		return pkgerrors.Newf(pkgerrors.CodePriceIntegrity,
			"store %s totals do not match its items", store.Name)
	}
	return nil
}

func (s *service) storeOpenNow(store *models.Store) (bool, error) {
	loc, err := time.LoadLocation(store.Timezone)
	if err != nil {
		return false, fmt.Errorf("store %s has invalid timezone %q: %w", store.ID, store.Timezone, err)
	}
	open, err := store.OpenHours.IsOpenAt(s.now().In(loc))
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt open hours table")
	}
	return open, nil
}
