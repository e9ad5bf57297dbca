package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trayfoods/trayfoods-backend/internal/ledger"
	"github.com/trayfoods/trayfoods-backend/internal/notify"
	"github.com/trayfoods/trayfoods-backend/pkg/config"
	"github.com/trayfoods/trayfoods-backend/pkg/db/models"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
)

type agedSettler interface {
	SettleAged(ctx context.Context, olderThan time.Time) ([]ledger.WalletSettlement, error)
}

type walletReader interface {
	GetWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error)
}

type messageSender interface {
	Send(ctx context.Context, msg notify.Message) error
}

// SettlementJobParams configure the settle sweep.
type SettlementJobParams struct {
	Logger   *logger.Logger
	Ledger   agedSettler
	Wallets  walletReader
	Notifier messageSender
	Config   config.SettlementConfig
}

// NewSettlementJob builds the job that clears order credits once they
// outlive the settlement window.
func NewSettlementJob(params SettlementJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallet reader required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Config.Window <= 0 {
		return nil, fmt.Errorf("settlement window must be positive")
	}
	if params.Config.SweepInterval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive")
	}
	return &settlementJob{
		logg:     params.Logger,
		ledger:   params.Ledger,
		wallets:  params.Wallets,
		notifier: params.Notifier,
		window:   params.Config.Window,
		interval: params.Config.SweepInterval,
		now:      time.Now,
	}, nil
}

type settlementJob struct {
	logg     *logger.Logger
	ledger   agedSettler
	wallets  walletReader
	notifier messageSender
	window   time.Duration
	interval time.Duration
	now      func() time.Time
}

func (j *settlementJob) Name() string            { return "settle-sweep" }
func (j *settlementJob) Interval() time.Duration { return j.interval }

func (j *settlementJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)
	settled, err := j.ledger.SettleAged(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("settle sweep: %w", err)
	}
	for _, entry := range settled {
		j.notifySettled(ctx, entry)
	}
	j.logg.Info(j.logg.WithField(ctx, "wallets", len(settled)), "settle sweep complete")
	return nil
}

// notifySettled tells the wallet owner their funds became spendable.
// Delivery failures never fail the sweep.
func (j *settlementJob) notifySettled(ctx context.Context, entry ledger.WalletSettlement) {
	wallet, err := j.wallets.GetWallet(ctx, entry.WalletID)
	if err != nil || wallet == nil {
		j.logg.Warn(j.logg.WithField(ctx, "wallet_id", entry.WalletID.String()), "settled wallet lookup failed")
		return
	}
	msg := notify.Message{
		ProfileID: wallet.ProfileID,
		Title:     "Funds settled",
		Body: fmt.Sprintf("%s %s from recent orders is now available in your wallet.",
			entry.Amount.Currency, entry.Amount.Amount.StringFixed(2)),
	}
	if err := j.notifier.Send(ctx, msg); err != nil {
		j.logg.Warn(j.logg.WithField(ctx, "wallet_id", entry.WalletID.String()), "settlement notification failed")
	}
}
