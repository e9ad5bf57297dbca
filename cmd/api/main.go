package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/trayfoods/trayfoods-backend/api"
	"github.com/trayfoods/trayfoods-backend/api/routes"
	"github.com/trayfoods/trayfoods-backend/internal/dispatch"
	"github.com/trayfoods/trayfoods-backend/internal/ledger"
	"github.com/trayfoods/trayfoods-backend/internal/notify"
	"github.com/trayfoods/trayfoods-backend/internal/orders"
	"github.com/trayfoods/trayfoods-backend/internal/webhooks"
	"github.com/trayfoods/trayfoods-backend/pkg/config"
	"github.com/trayfoods/trayfoods-backend/pkg/db"
	"github.com/trayfoods/trayfoods-backend/pkg/instance"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
	"github.com/trayfoods/trayfoods-backend/pkg/migrate"
	"github.com/trayfoods/trayfoods-backend/pkg/paystack"
	"github.com/trayfoods/trayfoods-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, err := paystack.NewClient(context.Background(), cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	notifSvc, err := buildNotifier(context.Background(), cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier", err)
		os.Exit(1)
	}

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), dbClient, gateway, cfg.Passcode, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	banks, err := ledger.NewBankDirectory(gateway, redisClient, cfg.Paystack.BankCacheTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create bank directory", err)
		os.Exit(1)
	}

	dispatchSvc, err := dispatch.NewService(dispatch.NewRepository(dbClient.DB()), dbClient, notifSvc, cfg.Dispatch, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
		dbClient,
		ledgerSvc,
		gateway,
		dispatchSvc,
		notifSvc,
		cfg.Orders,
		cfg.Frontend,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}
	// dispatch calls back into the order engine once a courier accepts
	dispatchSvc.Bind(ordersSvc)

	processor, err := webhooks.NewProcessor(
		webhooks.NewRepository(dbClient.DB()),
		redisClient,
		ordersSvc,
		ledgerSvc,
		notifSvc,
		cfg.Orders.Currency,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook processor", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	handler := routes.NewRouter(routes.RouterParams{
		Config:    cfg,
		Logger:    logg,
		DB:        dbClient,
		Redis:     redisClient,
		Orders:    ordersSvc,
		Dispatch:  dispatchSvc,
		Ledger:    ledgerSvc,
		Banks:     banks,
		Processor: processor,
	})

	if err := api.Serve(ctx, addr, handler, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildNotifier assembles the push, sms and email channels. A channel
// whose config is absent is skipped with a warning rather than blocking
// startup; the notifier falls through to the next channel at send time.
func buildNotifier(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (notify.Service, error) {
	resolver, err := notify.NewResolver(dbClient.DB())
	if err != nil {
		return nil, err
	}

	var push notify.PushSender
	if fcm, err := notify.NewFCMSender(ctx, cfg.Notify); err != nil {
		logg.Warn(ctx, "push channel disabled: "+err.Error())
	} else {
		push = fcm
	}

	var sms notify.SMSSender
	if sender, err := notify.NewHTTPSMSSender(cfg.Notify); err != nil {
		logg.Warn(ctx, "sms channel disabled: "+err.Error())
	} else {
		sms = sender
	}

	var email notify.EmailSender
	if sender, err := notify.NewSMTPSender(cfg.Notify); err != nil {
		logg.Warn(ctx, "email channel disabled: "+err.Error())
	} else {
		email = sender
	}

	return notify.NewService(resolver, push, sms, email, cfg.Notify.SupportEmail, logg)
}
