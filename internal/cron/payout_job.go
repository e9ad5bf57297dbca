package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/trayfoods/trayfoods-backend/internal/notify"
	"github.com/trayfoods/trayfoods-backend/pkg/db/models"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
)

const payoutCheckInterval = 24 * time.Hour

type clearedWalletSource interface {
	ListWalletsWithClearedFunds(ctx context.Context) ([]models.Wallet, error)
}

type payoutRunner interface {
	MonthlyPayout(ctx context.Context, walletID uuid.UUID) (*models.Transaction, error)
}

// PayoutJobParams configure the monthly courier payout.
type PayoutJobParams struct {
	Logger   *logger.Logger
	Wallets  clearedWalletSource
	Ledger   payoutRunner
	Notifier messageSender
}

// NewPayoutJob builds the job that moves cleared courier earnings into the
// spendable balance. It ticks daily and pays out on the first of the month.
func NewPayoutJob(params PayoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallet source required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &payoutJob{
		logg:     params.Logger,
		wallets:  params.Wallets,
		ledger:   params.Ledger,
		notifier: params.Notifier,
		now:      time.Now,
	}, nil
}

type payoutJob struct {
	logg     *logger.Logger
	wallets  clearedWalletSource
	ledger   payoutRunner
	notifier messageSender
	now      func() time.Time
}

func (j *payoutJob) Name() string            { return "monthly-payout" }
func (j *payoutJob) Interval() time.Duration { return payoutCheckInterval }

func (j *payoutJob) Run(ctx context.Context) error {
	if j.now().UTC().Day() != 1 {
		return nil
	}
	wallets, err := j.wallets.ListWalletsWithClearedFunds(ctx)
	if err != nil {
		return fmt.Errorf("list cleared wallets: %w", err)
	}
	var errs []error
	paid := 0
	for _, wallet := range wallets {
		txn, err := j.ledger.MonthlyPayout(ctx, wallet.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("payout wallet %s: %w", wallet.ID, err))
			continue
		}
		if txn == nil {
			continue
		}
		paid++
		msg := notify.Message{
			ProfileID: wallet.ProfileID,
			Title:     "Monthly payout",
			Body: fmt.Sprintf("%s %s in delivery earnings was added to your wallet balance.",
				txn.Currency, txn.Amount.StringFixed(2)),
		}
		if sendErr := j.notifier.Send(ctx, msg); sendErr != nil {
			j.logg.Warn(j.logg.WithField(ctx, "wallet_id", wallet.ID.String()), "payout notification failed")
		}
	}
	j.logg.Info(j.logg.WithField(ctx, "wallets", paid), "monthly payout complete")
	return multierr.Combine(errs...)
}
