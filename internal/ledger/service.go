package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/trayfoods/trayfoods-backend/pkg/config"
	"github.com/trayfoods/trayfoods-backend/pkg/db/models"
	"github.com/trayfoods/trayfoods-backend/pkg/enums"
	pkgerrors "github.com/trayfoods/trayfoods-backend/pkg/errors"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
	"github.com/trayfoods/trayfoods-backend/pkg/money"
	"github.com/trayfoods/trayfoods-backend/pkg/pagination"
	"github.com/trayfoods/trayfoods-backend/pkg/paystack"
	"github.com/trayfoods/trayfoods-backend/pkg/security"
)

// gateway fee rounding can shave one minor unit off the settled amount
var transferEpsilon = decimal.RequireFromString("0.01")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transferGateway interface {
	InitiateTransfer(ctx context.Context, params paystack.TransferParams) (*paystack.TransferResult, error)
	CreateRecipient(ctx context.Context, params paystack.RecipientParams) (string, error)
	GetBalance(ctx context.Context, currency string) (money.Money, error)
}

// Service owns every wallet balance mutation. Nothing outside this
// package writes wallet or transaction rows.
type Service interface {
	CreateWallet(ctx context.Context, profileID uuid.UUID, currency enums.Currency) (*models.Wallet, error)
	GetWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.Transaction, error)

	Credit(ctx context.Context, input CreditInput) (*models.Transaction, error)
	Debit(ctx context.Context, input DebitInput) (*models.Transaction, error)
	Withdraw(ctx context.Context, input WithdrawInput) (*models.Transaction, error)

	MarkTransferSuccess(ctx context.Context, externalRef, gatewayID string, amount money.Money) error
	MarkTransferFailed(ctx context.Context, externalRef string) error
	MarkTransferReversed(ctx context.Context, externalRef string) error

	Settle(ctx context.Context, transactionID uuid.UUID) error
	SettleAged(ctx context.Context, olderThan time.Time) ([]WalletSettlement, error)
	Refund(ctx context.Context, input RefundInput) (*models.Transaction, error)
	HoldOrderCredit(ctx context.Context, walletID uuid.UUID, orderTrack string) error
	ReleaseOrderCredit(ctx context.Context, walletID uuid.UUID, orderTrack string) error
	MonthlyPayout(ctx context.Context, walletID uuid.UUID) (*models.Transaction, error)

	SetPasscode(ctx context.Context, walletID uuid.UUID, passcode string) error
	VerifyPasscode(ctx context.Context, walletID uuid.UUID, passcode string) error
}

// CreditInput appends earned funds to a wallet. Order-linked credits land
// in the uncleared bucket until the settle sweep clears them; courier
// earnings accrue in the cleared bucket until the monthly payout.
type CreditInput struct {
	WalletID    uuid.UUID
	Amount      money.Money
	Title       string
	Description string
	OrderTrack  *string
	Immediate   bool
	Bucket      enums.WalletBucket
}

// DebitInput reserves funds for an outbound transfer. The reservation is
// immediate; the terminal state arrives over the transfer webhooks.
type DebitInput struct {
	WalletID    uuid.UUID
	Amount      money.Money
	TransferFee money.Money
	Title       string
	Description string
	ExternalRef string
}

/// WithdrawInput drives a full vendor or courier withdrawal: reserve the
// funds, then hand the transfer to the gateway.
type WithdrawInput struct {
	WalletID      uuid.UUID
	Amount        money.Money
	TransferFee   money.Money
	ExternalRef   string
	RecipientCode string
	Reason        string
	Passcode      string
}

// RefundInput deducts an already-credited share back out of a wallet
// after the gateway confirms a customer refund.
type RefundInput struct {
	WalletID    uuid.UUID
	Amount      money.Money
	OrderTrack  string
	Description string
}

// WalletSettlement summarizes the amount a settle sweep cleared for one
// wallet, used for the per-wallet notification.
type WalletSettlement struct {
	WalletID uuid.UUID
	Amount   money.Money
}

const (
	transferRetryBase = 500 * time.Millisecond
	transferRetryMax  = 3
)

type service struct {
	repo     Repository
	tx       txRunner
	gateway  transferGateway
	passcode config.PasscodeConfig
	logger   *logger.Logger
}

// NewService wires the ledger with its repository, transaction runner,
// and the outbound transfer gateway.
func NewService(repo Repository, tx txRunner, gateway transferGateway, passcode config.PasscodeConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("transfer gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, gateway: gateway, passcode: passcode, logger: logg}, nil
}

func (s *service) CreateWallet(ctx context.Context, profileID uuid.UUID, currency enums.Currency) (*models.Wallet, error) {
	if profileID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id is required")
	}
	if !currency.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid currency %q", currency)
	}
	wallet := &models.Wallet{
		ProfileID: profileID,
		Currency:  currency,
	}
	if err := s.repo.CreateWallet(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *service) GetWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	wallet, err := s.repo.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, pkgerrors.New(pkgerrors.CodeWalletNotFound, "wallet not found")
	}
	return wallet, nil
}

func (s *service) ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.Transaction, error) {
	if walletID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet id is required")
	}
	return s.repo.ListByWallet(ctx, walletID, params)
}

func (s *service) Credit(ctx context.Context, input CreditInput) (*models.Transaction, error) {
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}

	var created *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallet, err := repo.GetWalletForUpdate(ctx, input.WalletID)
		if err != nil {
			return err
		}
		if wallet == nil {
			return pkgerrors.New(pkgerrors.CodeWalletNotFound, "wallet not found")
		}
		if string(wallet.Currency) != input.Amount.Currency {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "currency %s does not match wallet currency %s", input.Amount.Currency, wallet.Currency)
		}

		txn := &models.Transaction{
			WalletID:    wallet.ID,
			Kind:        enums.TransactionKindCredit,
			Amount:      input.Amount.Amount,
			Currency:    wallet.Currency,
			OrderTrack:  input.OrderTrack,
			Title:       input.Title,
			Description: input.Description,
		}

		now := time.Now().UTC()
		switch {
		case input.Immediate:
			txn.Status = enums.TransactionStatusSettled
			txn.SettledAt = &now
			wallet.Balance = wallet.Balance.Add(input.Amount.Amount)
		case input.Bucket == enums.WalletBucketClearedBalance:
			txn.Status = enums.TransactionStatusSettled
			txn.SettledAt = &now
			wallet.ClearedBalance = wallet.ClearedBalance.Add(input.Amount.Amount)
		default:
			txn.Status = enums.TransactionStatusUnsettled
			wallet.UnclearedBalance = wallet.UnclearedBalance.Add(input.Amount.Amount)
		}

		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		if err := repo.SaveWallet(ctx, wallet); err != nil {
			return err
		}
		created = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Debit(ctx context.Context, input DebitInput) (*models.Transaction, error) {
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	if input.ExternalRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external reference is required")
	}

	var created *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.GetByExternalRefForUpdate(ctx, input.ExternalRef)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.WalletID == input.WalletID &&
				existing.Amount.Equal(input.Amount.Amount) &&
				existing.TransferFee.Equal(input.TransferFee.Amount) {
				created = existing
				return nil
			}
			return pkgerrors.Newf(pkgerrors.CodeIdempotencyConflict, "reference %s already used with a different payload", input.ExternalRef)
		}

		wallet, err := repo.GetWalletForUpdate(ctx, input.WalletID)
		if err != nil {
			return err
		}
		if wallet == nil {
			return pkgerrors.New(pkgerrors.CodeWalletNotFound, "wallet not found")
		}

		total := input.Amount.Amount.Add(input.TransferFee.Amount)
		if wallet.Balance.LessThan(total) {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance is too low").
				WithDetails(map[string]string{"max_transferable": wallet.Balance.StringFixed(2)})
		}

		externalRef := input.ExternalRef
		txn := &models.Transaction{
			WalletID:    wallet.ID,
			Kind:        enums.TransactionKindDebit,
			Status:      enums.TransactionStatusPending,
			Amount:      input.Amount.Amount,
			TransferFee: input.TransferFee.Amount,
			Currency:    wallet.Currency,
			ExternalRef: &externalRef,
			Title:       input.Title,
			Description: input.Description,
		}

		wallet.Balance = wallet.Balance.Sub(total)
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		if err := repo.SaveWallet(ctx, wallet); err != nil {
			return err
		}
		created = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Withdraw reserves the funds as a pending debit, then hands the transfer
// to the gateway outside the transaction. A rejected transfer releases the
// reservation; an accepted one stays pending until the webhook lands.
func (s *service) Withdraw(ctx context.Context, input WithdrawInput) (*models.Transaction, error) {
	if input.RecipientCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient code is required")
	}

	wallet, err := s.GetWallet(ctx, input.WalletID)
	if err != nil {
		return nil, err
	}
	if wallet.PasscodeHash != nil {
		ok, err := security.VerifyPasscode(input.Passcode, *wallet.PasscodeHash)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying wallet passcode")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "wallet passcode is incorrect")
		}
	}

	debit, err := s.Debit(ctx, DebitInput{
		WalletID:    input.WalletID,
		Amount:      input.Amount,
		TransferFee: input.TransferFee,
		Title:       "Withdrawal",
		Description: input.Reason,
		ExternalRef: input.ExternalRef,
	})
	if err != nil {
		return nil, err
	}
	if debit.Status != enums.TransactionStatusPending {
		// Idempotent replay of an already-finalized withdrawal.
		return debit, nil
	}

	transferErr := retry.Do(ctx, retry.WithMaxRetries(transferRetryMax, retry.NewExponential(transferRetryBase)), func(ctx context.Context) error {
		_, err := s.gateway.InitiateTransfer(ctx, paystack.TransferParams{
			Amount:        input.Amount,
			Reference:     input.ExternalRef,
			RecipientCode: input.RecipientCode,
			Reason:        input.Reason,
		})
		if err != nil && pkgerrors.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if transferErr != nil {
		logCtx := s.logger.WithWalletID(ctx, input.WalletID.String())
		s.logger.Error(logCtx, "transfer initiation failed, releasing reserved funds", transferErr)
		if failErr := s.MarkTransferFailed(ctx, input.ExternalRef); failErr != nil {
			s.logger.Error(logCtx, "failed to release reserved funds", failErr)
		}
		return nil, transferErr
	}
	return debit, nil
}

func (s *service) MarkTransferSuccess(ctx context.Context, externalRef, gatewayID string, amount money.Money) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.GetByExternalRefForUpdate(ctx, externalRef)
		if err != nil {
			return err
		}
		if txn == nil {
			return pkgerrors.Newf(pkgerrors.CodeTransactionNotFound, "no transaction for reference %s", externalRef)
		}
		if txn.Status == enums.TransactionStatusSuccess {
			return nil
		}
		if txn.Status != enums.TransactionStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeIllegalTransition, "transfer is %s, expected pending", txn.Status)
		}
		if txn.Amount.Sub(amount.Amount).Abs().GreaterThan(transferEpsilon) {
			return pkgerrors.Newf(pkgerrors.CodeAmountMismatch, "webhook amount %s does not match recorded %s", amount.Amount.StringFixed(2), txn.Amount.StringFixed(2))
		}

		txn.Status = enums.TransactionStatusSuccess
		txn.GatewayID = &gatewayID
		return repo.SaveTransaction(ctx, txn)
	})
}

func (s *service) MarkTransferFailed(ctx context.Context, externalRef string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.GetByExternalRefForUpdate(ctx, externalRef)
		if err != nil {
			return err
		}
		if txn == nil {
			return pkgerrors.Newf(pkgerrors.CodeTransactionNotFound, "no transaction for reference %s", externalRef)
		}
		if txn.Status == enums.TransactionStatusFailed {
			return nil
		}
		if txn.Status != enums.TransactionStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeIllegalTransition, "transfer is %s, expected pending", txn.Status)
		}

		wallet, err := repo.GetWalletForUpdate(ctx, txn.WalletID)
		if err != nil {
			return err
		}
		if wallet == nil {
			return pkgerrors.New(pkgerrors.CodeWalletNotFound, "wallet not found")
		}

		txn.Status = enums.TransactionStatusFailed
		wallet.Balance = wallet.Balance.Add(txn.Amount).Add(txn.TransferFee)
		if err := repo.SaveTransaction(ctx, txn); err != nil {
			return err
		}
		return repo.SaveWallet(ctx, wallet)
	})
}

func (s *service) MarkTransferReversed(ctx context.Context, externalRef string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.GetByExternalRefForUpdate(ctx, externalRef)
		if err != nil {
			return err
		}
		if txn == nil {
			return pkgerrors.Newf(pkgerrors.CodeTransactionNotFound, "no transaction for reference %s", externalRef)
		}
		if txn.Status == enums.TransactionStatusReversed {
			return nil
		}
		if txn.Status != enums.TransactionStatusSuccess {
			return pkgerrors.Newf(pkgerrors.CodeIllegalTransition, "transfer is %s, expected success", txn.Status)
		}

		wallet, err := repo.GetWalletForUpdate(ctx, txn.WalletID)
		if err != nil {
			return err
		}
		if wallet == nil {
			return pkgerrors.New(pkgerrors.CodeWalletNotFound, "wallet not found")
		}

		now := time.Now().UTC()
		restored := txn.Amount.Add(txn.TransferFee)
		reversal := &models.Transaction{
			WalletID:    wallet.ID,
			Kind:        enums.TransactionKindReversal,
			Status:      enums.TransactionStatusSettled,
			Amount:      restored,
			Currency:    wallet.Currency,
			Title:       "Transfer reversed",
			Description: fmt.Sprintf("Reversal of transfer %s", externalRef),
			SettledAt:   &now,
		}

		txn.Status = enums.TransactionStatusReversed
		wallet.Balance = wallet.Balance.Add(restored)
		if err := repo.SaveTransaction(ctx, txn); err != nil {
			return err
		}
		if err := repo.CreateTransaction(ctx, reversal); err != nil {
			return err
		}
		return repo.SaveWallet(ctx, wallet)
	})
}

func (s *service) Settle(ctx context.Context, transactionID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.GetTransactionForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if txn == nil {
			return pkgerrors.New(pkgerrors.CodeTransactionNotFound, "transaction not found")
		}
		if txn.Status == enums.TransactionStatusSettled {
			return nil
		}
		if txn.Status != enums.TransactionStatusUnsettled {
			return pkgerrors.Newf(pkgerrors.CodeIllegalTransition, "transaction is %s, expected unsettled", txn.Status)
		}

		wallet, err := repo.GetWalletForUpdate(ctx, txn.WalletID)
		if err != nil {
			return err
		}
		if wallet == nil {
			return pkgerrors.New(pkgerrors.CodeWalletNotFound, "wallet not found")
		}

		now := time.Now().UTC()
		txn.Status = enums.TransactionStatusSettled
		txn.SettledAt = &now
		wallet.UnclearedBalance = wallet.UnclearedBalance.Sub(txn.Amount)
		wallet.Balance = wallet.Balance.Add(txn.Amount)
		if err := repo.SaveTransaction(ctx, txn); err != nil {
			return err
		}
		return repo.SaveWallet(ctx, wallet)
	})
}

// SettleAged clears every unsettled transaction older than the cutoff.
// Each settlement commits on its own, so a killed sweep resumes cleanly.
func (s *service) SettleAged(ctx context.Context, olderThan time.Time) ([]WalletSettlement, error) {
	txns, err := s.repo.ListUnsettledOlderThan(ctx, olderThan)
	if err != nil {
		return nil, err
	}

	totals := make(map[uuid.UUID]money.Money)
	var order []uuid.UUID
	for _, txn := range txns {
		if err := s.Settle(ctx, txn.ID); err != nil {
			// A hold placed after listing is not an error for the sweep.
			if pkgerrors.HasCode(err, pkgerrors.CodeIllegalTransition) {
				continue
			}
			return settlements(order, totals), err
		}
		if existing, ok := totals[txn.WalletID]; ok {
			sum, addErr := existing.Add(money.New(txn.Amount, string(txn.Currency)))
			if addErr != nil {
				return settlements(order, totals), addErr
			}
			totals[txn.WalletID] = sum
		} else {
			totals[txn.WalletID] = money.New(txn.Amount, string(txn.Currency))
			order = append(order, txn.WalletID)
		}
	}
	return settlements(order, totals), nil
}

func settlements(order []uuid.UUID, totals map[uuid.UUID]money.Money) []WalletSettlement {
	out := make([]WalletSettlement, 0, len(order))
	for _, walletID := range order {
		out = append(out, WalletSettlement{WalletID: walletID, Amount: totals[walletID]})
	}
	return out
}

func (s *service) Refund(ctx context.Context, input RefundInput) (*models.Transaction, error) {
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	if input.OrderTrack == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order track id is required")
	}

	var created *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallet, err := repo.GetWalletForUpdate(ctx, input.WalletID)
		if err != nil {
			return err
		}
		if wallet == nil {
			return pkgerrors.New(pkgerrors.CodeWalletNotFound, "wallet not found")
		}

		available := wallet.Balance.Add(wallet.UnclearedBalance)
		if available.LessThan(input.Amount.Amount) {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet cannot cover the refund").
				WithDetails(map[string]string{"max_transferable": available.StringFixed(2)})
		}

		// Claw back the uncleared order credit first; only the remainder
		// touches the settled balance.
		fromUncleared := decimal.Min(wallet.UnclearedBalance, input.Amount.Amount)
		fromBalance := input.Amount.Amount.Sub(fromUncleared)
		wallet.UnclearedBalance = wallet.UnclearedBalance.Sub(fromUncleared)
		wallet.Balance = wallet.Balance.Sub(fromBalance)

		now := time.Now().UTC()
		orderTrack := input.OrderTrack
		txn := &models.Transaction{
			WalletID:    wallet.ID,
			Kind:        enums.TransactionKindRefund,
			Status:      enums.TransactionStatusSettled,
			Amount:      input.Amount.Amount,
			Currency:    wallet.Currency,
			OrderTrack:  &orderTrack,
			Title:       "Order refund",
			Description: input.Description,
			SettledAt:   &now,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		if err := repo.SaveWallet(ctx, wallet); err != nil {
			return err
		}
		created = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) HoldOrderCredit(ctx context.Context, walletID uuid.UUID, orderTrack string) error {
	return s.transitionOrderCredit(ctx, walletID, orderTrack, enums.TransactionStatusUnsettled, enums.TransactionStatusOnHold)
}

func (s *service) ReleaseOrderCredit(ctx context.Context, walletID uuid.UUID, orderTrack string) error {
	return s.transitionOrderCredit(ctx, walletID, orderTrack, enums.TransactionStatusOnHold, enums.TransactionStatusUnsettled)
}

func (s *service) transitionOrderCredit(ctx context.Context, walletID uuid.UUID, orderTrack string, from, to enums.TransactionStatus) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.FindOrderCredit(ctx, walletID, orderTrack)
		if err != nil {
			return err
		}
		if txn == nil {
			return pkgerrors.Newf(pkgerrors.CodeTransactionNotFound, "no order credit for %s", orderTrack)
		}
		if txn.Status == to {
			return nil
		}
		if txn.Status != from {
			return pkgerrors.Newf(pkgerrors.CodeIllegalTransition, "order credit is %s, expected %s", txn.Status, from)
		}
		txn.Status = to
		return repo.SaveTransaction(ctx, txn)
	})
}

// MonthlyPayout moves a courier's cleared earnings into the spendable
// balance. Returns nil when the cleared bucket is empty.
func (s *service) MonthlyPayout(ctx context.Context, walletID uuid.UUID) (*models.Transaction, error) {
	var created *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallet, err := repo.GetWalletForUpdate(ctx, walletID)
		if err != nil {
			return err
		}
		if wallet == nil {
			return pkgerrors.New(pkgerrors.CodeWalletNotFound, "wallet not found")
		}
		if wallet.ClearedBalance.IsZero() {
			return nil
		}

		now := time.Now().UTC()
		txn := &models.Transaction{
			WalletID:    wallet.ID,
			Kind:        enums.TransactionKindTransfer,
			Status:      enums.TransactionStatusSettled,
			Amount:      wallet.ClearedBalance,
			Currency:    wallet.Currency,
			Title:       "Monthly payout",
			Description: "Cleared delivery earnings moved to balance",
			SettledAt:   &now,
		}
		wallet.Balance = wallet.Balance.Add(wallet.ClearedBalance)
		wallet.ClearedBalance = decimal.Zero
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		if err := repo.SaveWallet(ctx, wallet); err != nil {
			return err
		}
		created = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) SetPasscode(ctx context.Context, walletID uuid.UUID, passcode string) error {
	if len(passcode) < 4 {
		return pkgerrors.New(pkgerrors.CodeValidation, "passcode must be at least 4 characters")
	}
	hash, err := security.HashPasscode(passcode, s.passcode)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing wallet passcode")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallet, err := repo.GetWalletForUpdate(ctx, walletID)
		if err != nil {
			return err
		}
		if wallet == nil {
			return pkgerrors.New(pkgerrors.CodeWalletNotFound, "wallet not found")
		}
		wallet.PasscodeHash = &hash
		return repo.SaveWallet(ctx, wallet)
	})
}

func (s *service) VerifyPasscode(ctx context.Context, walletID uuid.UUID, passcode string) error {
	wallet, err := s.GetWallet(ctx, walletID)
	if err != nil {
		return err
	}
	if wallet.PasscodeHash == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "wallet has no passcode set")
	}
	ok, err := security.VerifyPasscode(passcode, *wallet.PasscodeHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying wallet passcode")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "wallet passcode is incorrect")
	}
	return nil
}

func validateAmount(amount money.Money) error {
	if amount.Amount.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if amount.Currency == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "currency is required")
	}
	return nil
}
