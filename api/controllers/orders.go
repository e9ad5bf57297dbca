package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trayfoods/trayfoods-backend/api/middleware"
	"github.com/trayfoods/trayfoods-backend/api/responses"
	"github.com/trayfoods/trayfoods-backend/internal/orders"
	"github.com/trayfoods/trayfoods-backend/pkg/db/models"
	pkgerrors "github.com/trayfoods/trayfoods-backend/pkg/errors"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
	"github.com/trayfoods/trayfoods-backend/pkg/types"
)

type composeRequest struct {
	StoresInfos        types.StoreInfos `json:"storesInfos"`
	Shipping           types.Shipping   `json:"shipping"`
	OverallPrice       decimal.Decimal  `json:"overallPrice"`
	DeliveryFee        decimal.Decimal  `json:"deliveryFee"`
	StoreNotes         types.JSONMap    `json:"storeNotes"`
	DeliveryPersonNote string           `json:"deliveryPersonNote"`
}

type orderResponse struct {
	TrackID        string               `json:"trackId"`
	Status         string               `json:"status"`
	PaymentStatus  string               `json:"paymentStatus"`
	Currency       string               `json:"currency"`
	OverallPrice   decimal.Decimal      `json:"overallPrice"`
	DeliveryFee    decimal.Decimal      `json:"deliveryFee"`
	ServiceFee     decimal.Decimal      `json:"serviceFee"`
	FundsRefunded  decimal.Decimal      `json:"fundsRefunded"`
	PaymentMethod  string               `json:"paymentMethod,omitempty"`
	PaymentURL     string               `json:"paymentUrl,omitempty"`
	Shipping       types.Shipping       `json:"shipping"`
	StoresInfos    types.StoreInfos     `json:"storesInfos"`
	StoresStatus   types.StoresStatus   `json:"storesStatus"`
	DeliveryPeople types.DeliveryPeople `json:"deliveryPeople"`
	ActivitiesLog  types.ActivitiesLog  `json:"activitiesLog"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// The pin never leaves through the order payload; customers receive it in
// their pickup notification.
func toOrderResponse(order *models.Order) orderResponse {
	return orderResponse{
		TrackID:        order.TrackID,
		Status:         string(order.Status),
		PaymentStatus:  string(order.PaymentStatus),
		Currency:       string(order.Currency),
		OverallPrice:   order.OverallPrice,
		DeliveryFee:    order.DeliveryFee,
		ServiceFee:     order.ServiceFee,
		FundsRefunded:  order.FundsRefunded,
		PaymentMethod:  order.PaymentMethod,
		PaymentURL:     order.PaymentURL,
		Shipping:       order.Shipping,
		StoresInfos:    order.StoresInfos,
		StoresStatus:   order.StoresStatus,
		DeliveryPeople: order.DeliveryPeople,
		ActivitiesLog:  order.ActivitiesLog,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}

func actorOr403(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	profileID, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing"))
		return uuid.Nil, false
	}
	return profileID, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, logg *logger.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed request body"))
		return false
	}
	return true
}

// ComposeOrder freezes a cart into an order and mints the checkout link.
func ComposeOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID, ok := actorOr403(w, r, logg)
		if !ok {
			return
		}
		var req composeRequest
		if !decodeBody(w, r, logg, &req) {
			return
		}
		order, err := svc.Compose(r.Context(), orders.ComposeInput{
			CustomerID:         profileID,
			StoresInfos:        req.StoresInfos,
			Shipping:           req.Shipping,
			OverallPrice:       req.OverallPrice,
			DeliveryFee:        req.DeliveryFee,
			StoreNotes:         req.StoreNotes,
			DeliveryPersonNote: req.DeliveryPersonNote,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toOrderResponse(order))
	}
}

// GetOrder returns the order to anyone holding a role on it.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID, ok := actorOr403(w, r, logg)
		if !ok {
			return
		}
		order, err := svc.GetByTrackID(r.Context(), chi.URLParam(r, "trackID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		roles, err := svc.Roles(r.Context(), order, profileID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if roles.Empty() && order.CustomerID != profileID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no role on this order"))
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

// RegenerateTrackID reissues the tracking reference of an unpaid order.
func RegenerateTrackID(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID, ok := actorOr403(w, r, logg)
		if !ok {
			return
		}
		order, err := svc.RegenerateTrackID(r.Context(), chi.URLParam(r, "trackID"), profileID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

// MarkOrderSeen records that the caller viewed the order.
func MarkOrderSeen(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID, ok := actorOr403(w, r, logg)
		if !ok {
			return
		}
		if err := svc.MarkSeen(r.Context(), chi.URLParam(r, "trackID"), profileID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

type vendorActionRequest struct {
	StoreID uuid.UUID `json:"storeId"`
	Action  string    `json:"action"`
}

// VendorOrderAction applies a vendor-side per-store transition.
func VendorOrderAction(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID, ok := actorOr403(w, r, logg)
		if !ok {
			return
		}
		var req vendorActionRequest
		if !decodeBody(w, r, logg, &req) {
			return
		}
		err := svc.VendorAction(r.Context(), orders.VendorActionInput{
			TrackID:        chi.URLParam(r, "trackID"),
			StoreID:        req.StoreID,
			ActorProfileID: profileID,
			Action:         orders.VendorAction(req.Action),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

type pickupConfirmRequest struct {
	StoreID uuid.UUID `json:"storeId"`
	Pin     string    `json:"pin"`
}

// ConfirmPickup closes a pickup store slice against the customer's pin.
func ConfirmPickup(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID, ok := actorOr403(w, r, logg)
		if !ok {
			return
		}
		var req pickupConfirmRequest
		if !decodeBody(w, r, logg, &req) {
			return
		}
		if err := svc.ConfirmPickup(r.Context(), chi.URLParam(r, "trackID"), req.StoreID, profileID, req.Pin); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// CancelOrder is the customer's full-order cancellation.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID, ok := actorOr403(w, r, logg)
		if !ok {
			return
		}
		if err := svc.CustomerCancel(r.Context(), chi.URLParam(r, "trackID"), profileID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

type courierActionRequest struct {
	CourierID uuid.UUID `json:"courierId"`
	Action    string    `json:"action"`
}

// CourierOrderAction applies a courier-side transition on a bound store.
func CourierOrderAction(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID, ok := actorOr403(w, r, logg)
		if !ok {
			return
		}
		var req courierActionRequest
		if !decodeBody(w, r, logg, &req) {
			return
		}
		err := svc.CourierAction(r.Context(), orders.CourierActionInput{
			TrackID:        chi.URLParam(r, "trackID"),
			CourierID:      req.CourierID,
			ActorProfileID: profileID,
			Action:         orders.CourierAction(req.Action),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
