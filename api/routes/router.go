package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trayfoods/trayfoods-backend/api/controllers"
	"github.com/trayfoods/trayfoods-backend/api/middleware"
	"github.com/trayfoods/trayfoods-backend/internal/dispatch"
	"github.com/trayfoods/trayfoods-backend/internal/ledger"
	"github.com/trayfoods/trayfoods-backend/internal/orders"
	"github.com/trayfoods/trayfoods-backend/internal/webhooks"
	"github.com/trayfoods/trayfoods-backend/pkg/config"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams bundle everything the HTTP surface needs.
type RouterParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        pinger
	Redis     pinger
	Orders    orders.Service
	Dispatch  dispatch.Service
	Ledger    ledger.Service
	Banks     *ledger.BankDirectory
	Processor *webhooks.Processor
}

// NewRouter builds the chi router with the full middleware chain.
func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Logger, p.DB, p.Redis))
	})

	// Gateway callbacks authenticate by signature, not by actor header.
	r.Post("/api/v1/webhooks/paystack", controllers.PaystackWebhook(p.Processor, p.Config.Paystack, p.Logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(p.Logger))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.ComposeOrder(p.Orders, p.Logger))
			r.Route("/{trackID}", func(r chi.Router) {
				r.Get("/", controllers.GetOrder(p.Orders, p.Logger))
				r.Post("/regenerate", controllers.RegenerateTrackID(p.Orders, p.Logger))
				r.Post("/seen", controllers.MarkOrderSeen(p.Orders, p.Logger))
				r.Post("/vendor-action", controllers.VendorOrderAction(p.Orders, p.Logger))
				r.Post("/pickup-confirm", controllers.ConfirmPickup(p.Orders, p.Logger))
				r.Post("/cancel", controllers.CancelOrder(p.Orders, p.Logger))
				r.Post("/courier-action", controllers.CourierOrderAction(p.Orders, p.Logger))
			})
		})

		r.Route("/deliveries/{trackID}", func(r chi.Router) {
			r.Post("/accept", controllers.AcceptDelivery(p.Dispatch, p.Logger))
			r.Post("/reject", controllers.RejectDelivery(p.Dispatch, p.Logger))
		})

		r.Route("/banks", func(r chi.Router) {
			r.Get("/", controllers.ListBanks(p.Banks, p.Config.Orders.Currency, p.Logger))
			r.Post("/resolve", controllers.ResolveBankAccount(p.Banks, p.Logger))
		})

		r.Route("/wallets/{walletID}", func(r chi.Router) {
			r.Get("/", controllers.GetWallet(p.Ledger, p.Logger))
			r.Get("/transactions", controllers.ListWalletTransactions(p.Ledger, p.Logger))
			r.Post("/passcode", controllers.SetWalletPasscode(p.Ledger, p.Logger))
			r.Post("/withdraw", controllers.Withdraw(p.Ledger, p.Logger))
		})
	})

	return r
}
