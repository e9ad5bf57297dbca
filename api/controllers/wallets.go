package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trayfoods/trayfoods-backend/api/responses"
	"github.com/trayfoods/trayfoods-backend/internal/ledger"
	"github.com/trayfoods/trayfoods-backend/pkg/db/models"
	pkgerrors "github.com/trayfoods/trayfoods-backend/pkg/errors"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
	"github.com/trayfoods/trayfoods-backend/pkg/money"
	"github.com/trayfoods/trayfoods-backend/pkg/pagination"
)

type walletResponse struct {
	ID               uuid.UUID       `json:"id"`
	Currency         string          `json:"currency"`
	Balance          decimal.Decimal `json:"balance"`
	UnclearedBalance decimal.Decimal `json:"unclearedBalance"`
	ClearedBalance   decimal.Decimal `json:"clearedBalance"`
	Hidden           bool            `json:"hidden"`
	HasPasscode      bool            `json:"hasPasscode"`
}

type transactionResponse struct {
	ID          uuid.UUID       `json:"id"`
	Kind        string          `json:"kind"`
	Status      string          `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	TransferFee decimal.Decimal `json:"transferFee"`
	Currency    string          `json:"currency"`
	OrderTrack  *string         `json:"orderTrackId,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
	SettledAt   *time.Time      `json:"settledAt,omitempty"`
}

func toTransactionResponse(txn models.Transaction) transactionResponse {
	return transactionResponse{
		ID:          txn.ID,
		Kind:        string(txn.Kind),
		Status:      string(txn.Status),
		Amount:      txn.Amount,
		TransferFee: txn.TransferFee,
		Currency:    string(txn.Currency),
		OrderTrack:  txn.OrderTrack,
		Title:       txn.Title,
		Description: txn.Description,
		CreatedAt:   txn.CreatedAt,
		SettledAt:   txn.SettledAt,
	}
}

// ownedWallet loads the wallet and verifies the caller owns it.
func ownedWallet(w http.ResponseWriter, r *http.Request, svc ledger.Service, logg *logger.Logger) (*models.Wallet, bool) {
	profileID, ok := actorOr403(w, r, logg)
	if !ok {
		return nil, false
	}
	walletID, err := uuid.Parse(chi.URLParam(r, "walletID"))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "malformed wallet id"))
		return nil, false
	}
	wallet, err := svc.GetWallet(r.Context(), walletID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	if wallet.ProfileID != profileID {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "wallet belongs to another profile"))
		return nil, false
	}
	return wallet, true
}

// GetWallet returns the caller's wallet balances.
func GetWallet(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, ok := ownedWallet(w, r, svc, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, walletResponse{
			ID:               wallet.ID,
			Currency:         string(wallet.Currency),
			Balance:          wallet.Balance,
			UnclearedBalance: wallet.UnclearedBalance,
			ClearedBalance:   wallet.ClearedBalance,
			Hidden:           wallet.Hidden,
			HasPasscode:      wallet.PasscodeHash != nil,
		})
	}
}

// ListWalletTransactions pages through the wallet ledger, newest first.
func ListWalletTransactions(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, ok := ownedWallet(w, r, svc, logg)
		if !ok {
			return
		}
		limit := pagination.DefaultLimit
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be an integer"))
				return
			}
			limit = parsed
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		txns, err := svc.ListTransactions(r.Context(), wallet.ID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]transactionResponse, 0, len(txns))
		for _, txn := range txns {
			out = append(out, toTransactionResponse(txn))
		}
		responses.WriteSuccess(w, out)
	}
}

type setPasscodeRequest struct {
	Passcode string `json:"passcode"`
}

// SetWalletPasscode sets or rotates the withdrawal passcode.
func SetWalletPasscode(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, ok := ownedWallet(w, r, svc, logg)
		if !ok {
			return
		}
		var req setPasscodeRequest
		if !decodeBody(w, r, logg, &req) {
			return
		}
		if err := svc.SetPasscode(r.Context(), wallet.ID, req.Passcode); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

type withdrawRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	RecipientCode string          `json:"recipientCode"`
	Reason        string          `json:"reason"`
	Passcode      string          `json:"passcode"`
}

// Withdraw reserves funds and starts a gateway transfer. The transfer
// settles asynchronously through the transfer.* webhooks.
func Withdraw(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, ok := ownedWallet(w, r, svc, logg)
		if !ok {
			return
		}
		var req withdrawRequest
		if !decodeBody(w, r, logg, &req) {
			return
		}
		if !req.Amount.IsPositive() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive"))
			return
		}
		amount := money.New(req.Amount, string(wallet.Currency))
		txn, err := svc.Withdraw(r.Context(), ledger.WithdrawInput{
			WalletID:      wallet.ID,
			Amount:        amount,
			TransferFee:   ledger.TransferFeeFor(amount),
			ExternalRef:   "wd_" + uuid.NewString(),
			RecipientCode: req.RecipientCode,
			Reason:        req.Reason,
			Passcode:      req.Passcode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, toTransactionResponse(*txn))
	}
}
