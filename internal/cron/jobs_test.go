package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trayfoods/trayfoods-backend/internal/ledger"
	"github.com/trayfoods/trayfoods-backend/internal/notify"
	"github.com/trayfoods/trayfoods-backend/pkg/config"
	"github.com/trayfoods/trayfoods-backend/pkg/db/models"
	"github.com/trayfoods/trayfoods-backend/pkg/enums"
	"github.com/trayfoods/trayfoods-backend/pkg/money"
)

type fakeSettler struct {
	cutoff  time.Time
	settled []ledger.WalletSettlement
	err     error
}

func (f *fakeSettler) SettleAged(ctx context.Context, olderThan time.Time) ([]ledger.WalletSettlement, error) {
	f.cutoff = olderThan
	return f.settled, f.err
}

type fakeWalletReader struct {
	wallets map[uuid.UUID]*models.Wallet
}

func (f *fakeWalletReader) GetWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	return f.wallets[walletID], nil
}

type fakeSender struct {
	messages []notify.Message
	err      error
}

func (f *fakeSender) Send(ctx context.Context, msg notify.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func TestSettlementJobNotifiesEachClearedWallet(t *testing.T) {
	walletID := uuid.New()
	profileID := uuid.New()
	settler := &fakeSettler{settled: []ledger.WalletSettlement{
		{WalletID: walletID, Amount: money.New(decimal.RequireFromString("600"), "NGN")},
	}}
	wallets := &fakeWalletReader{wallets: map[uuid.UUID]*models.Wallet{
		walletID: {ID: walletID, ProfileID: profileID},
	}}
	sender := &fakeSender{}

	job, err := NewSettlementJob(SettlementJobParams{
		Logger:   testLogger(),
		Ledger:   settler,
		Wallets:  wallets,
		Notifier: sender,
		Config:   config.SettlementConfig{Window: 24 * time.Hour, SweepInterval: time.Hour},
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	job.(*settlementJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !settler.cutoff.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("cutoff = %s", settler.cutoff)
	}
	if len(sender.messages) != 1 {
		t.Fatalf("messages = %d", len(sender.messages))
	}
	msg := sender.messages[0]
	if msg.ProfileID != profileID {
		t.Fatalf("message went to %s", msg.ProfileID)
	}
	if msg.Title != "Funds settled" {
		t.Fatalf("title = %q", msg.Title)
	}
}

func TestSettlementJobToleratesNotificationFailure(t *testing.T) {
	walletID := uuid.New()
	settler := &fakeSettler{settled: []ledger.WalletSettlement{
		{WalletID: walletID, Amount: money.New(decimal.RequireFromString("100"), "NGN")},
	}}
	wallets := &fakeWalletReader{wallets: map[uuid.UUID]*models.Wallet{
		walletID: {ID: walletID, ProfileID: uuid.New()},
	}}

	job, err := NewSettlementJob(SettlementJobParams{
		Logger:   testLogger(),
		Ledger:   settler,
		Wallets:  wallets,
		Notifier: &fakeSender{err: errors.New("push down")},
		Config:   config.SettlementConfig{Window: 24 * time.Hour, SweepInterval: time.Hour},
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("notification failures must not fail the sweep: %v", err)
	}
}

type fakeStalledSweeper struct {
	cutoff  time.Time
	flipped int
}

func (f *fakeStalledSweeper) SweepStalled(ctx context.Context, updatedBefore time.Time) (int, error) {
	f.cutoff = updatedBefore
	return f.flipped, nil
}

func TestStalledOrdersJobUsesConfiguredWindow(t *testing.T) {
	sweeper := &fakeStalledSweeper{flipped: 2}
	job, err := NewStalledOrdersJob(StalledOrdersJobParams{
		Logger: testLogger(),
		Orders: sweeper,
		Config: config.DispatchConfig{StalledOrderWindow: 30 * time.Minute, StalledSweepInterval: 5 * time.Minute},
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	job.(*stalledOrdersJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !sweeper.cutoff.Equal(now.Add(-30 * time.Minute)) {
		t.Fatalf("cutoff = %s", sweeper.cutoff)
	}
	if job.Interval() != 5*time.Minute {
		t.Fatalf("interval = %s", job.Interval())
	}
}

type fakeExpirer struct {
	expired int
	err     error
}

func (f *fakeExpirer) ExpireStale(ctx context.Context) (int, error) {
	return f.expired, f.err
}

func TestDeliveryExpiryJobSurfacesErrors(t *testing.T) {
	job, err := NewDeliveryExpiryJob(DeliveryExpiryJobParams{
		Logger:   testLogger(),
		Dispatch: &fakeExpirer{err: errors.New("database down")},
		Config:   config.DispatchConfig{AcceptWindow: 15 * time.Minute},
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected the sweep error to surface")
	}
	if job.Interval() != 5*time.Minute {
		t.Fatalf("interval = %s", job.Interval())
	}
}

type fakeClearedWallets struct {
	wallets []models.Wallet
}

func (f *fakeClearedWallets) ListWalletsWithClearedFunds(ctx context.Context) ([]models.Wallet, error) {
	return f.wallets, nil
}

type fakePayoutRunner struct {
	paid   []uuid.UUID
	errFor map[uuid.UUID]error
}

func (f *fakePayoutRunner) MonthlyPayout(ctx context.Context, walletID uuid.UUID) (*models.Transaction, error) {
	if err := f.errFor[walletID]; err != nil {
		return nil, err
	}
	f.paid = append(f.paid, walletID)
	return &models.Transaction{
		WalletID: walletID,
		Kind:     enums.TransactionKindTransfer,
		Amount:   decimal.RequireFromString("112.50"),
		Currency: enums.CurrencyNGN,
	}, nil
}

func newPayoutJob(t *testing.T, wallets *fakeClearedWallets, runner *fakePayoutRunner, sender *fakeSender) *payoutJob {
	t.Helper()
	job, err := NewPayoutJob(PayoutJobParams{
		Logger:   testLogger(),
		Wallets:  wallets,
		Ledger:   runner,
		Notifier: sender,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	return job.(*payoutJob)
}

func TestPayoutJobRunsOnlyOnFirstOfMonth(t *testing.T) {
	wallets := &fakeClearedWallets{wallets: []models.Wallet{{ID: uuid.New(), ProfileID: uuid.New()}}}
	runner := &fakePayoutRunner{}
	sender := &fakeSender{}
	job := newPayoutJob(t, wallets, runner, sender)

	job.now = func() time.Time { return time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC) }
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(runner.paid) != 0 {
		t.Fatal("payout must not run mid-month")
	}

	job.now = func() time.Time { return time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC) }
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(runner.paid) != 1 {
		t.Fatalf("paid = %d wallets", len(runner.paid))
	}
	if len(sender.messages) != 1 {
		t.Fatalf("messages = %d", len(sender.messages))
	}
}

func TestPayoutJobContinuesPastFailures(t *testing.T) {
	broken := models.Wallet{ID: uuid.New(), ProfileID: uuid.New()}
	healthy := models.Wallet{ID: uuid.New(), ProfileID: uuid.New()}
	wallets := &fakeClearedWallets{wallets: []models.Wallet{broken, healthy}}
	runner := &fakePayoutRunner{errFor: map[uuid.UUID]error{broken.ID: errors.New("locked")}}
	sender := &fakeSender{}
	job := newPayoutJob(t, wallets, runner, sender)
	job.now = func() time.Time { return time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC) }

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected the wallet failure to surface")
	}
	if len(runner.paid) != 1 || runner.paid[0] != healthy.ID {
		t.Fatalf("paid = %v", runner.paid)
	}
}
