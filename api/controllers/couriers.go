package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/trayfoods/trayfoods-backend/api/responses"
	"github.com/trayfoods/trayfoods-backend/internal/dispatch"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
)

type deliveryDecisionRequest struct {
	CourierID uuid.UUID `json:"courierId"`
}

// AcceptDelivery claims an open delivery invitation. Only the first
// courier wins; everyone else gets ALREADY_TAKEN.
func AcceptDelivery(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := actorOr403(w, r, logg); !ok {
			return
		}
		var req deliveryDecisionRequest
		if !decodeBody(w, r, logg, &req) {
			return
		}
		if err := svc.Accept(r.Context(), chi.URLParam(r, "trackID"), req.CourierID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// RejectDelivery declines an open delivery invitation.
func RejectDelivery(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := actorOr403(w, r, logg); !ok {
			return
		}
		var req deliveryDecisionRequest
		if !decodeBody(w, r, logg, &req) {
			return
		}
		if err := svc.Reject(r.Context(), chi.URLParam(r, "trackID"), req.CourierID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
