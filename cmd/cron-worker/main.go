package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trayfoods/trayfoods-backend/internal/cron"
	"github.com/trayfoods/trayfoods-backend/internal/dispatch"
	"github.com/trayfoods/trayfoods-backend/internal/ledger"
	"github.com/trayfoods/trayfoods-backend/internal/notify"
	"github.com/trayfoods/trayfoods-backend/internal/orders"
	"github.com/trayfoods/trayfoods-backend/pkg/config"
	"github.com/trayfoods/trayfoods-backend/pkg/db"
	"github.com/trayfoods/trayfoods-backend/pkg/instance"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
	"github.com/trayfoods/trayfoods-backend/pkg/metrics"
	"github.com/trayfoods/trayfoods-backend/pkg/migrate"
	"github.com/trayfoods/trayfoods-backend/pkg/paystack"
	"github.com/trayfoods/trayfoods-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	ledgerSvc, err := ledger.NewService(ledgerRepo, dbClient, gateway, cfg.Passcode, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
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
	dispatchSvc.Bind(ordersSvc)

	settlementJob, err := cron.NewSettlementJob(cron.SettlementJobParams{
		Logger:   logg,
		Ledger:   ledgerSvc,
		Wallets:  ledgerSvc,
		Notifier: notifSvc,
		Config:   cfg.Settlement,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement job", err)
		os.Exit(1)
	}

	stalledJob, err := cron.NewStalledOrdersJob(cron.StalledOrdersJobParams{
		Logger: logg,
		Orders: ordersSvc,
		Config: cfg.Dispatch,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stalled orders job", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewDeliveryExpiryJob(cron.DeliveryExpiryJobParams{
		Logger:   logg,
		Dispatch: dispatchSvc,
		Config:   cfg.Dispatch,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery expiry job", err)
		os.Exit(1)
	}

	payoutJob, err := cron.NewPayoutJob(cron.PayoutJobParams{
		Logger:   logg,
		Wallets:  ledgerRepo,
		Ledger:   ledgerSvc,
		Notifier: notifSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payout job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(settlementJob, stalledJob, expiryJob, payoutJob)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Locks: func(name string, ttl time.Duration) (cron.Lock, error) {
			return cron.NewRedisLock(redisClient, name, ttl)
		},
		Metrics: metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildNotifier mirrors the api wiring; background jobs use the same
// channel fallbacks when telling owners about settlements and payouts.
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
