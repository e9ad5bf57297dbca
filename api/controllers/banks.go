package controllers

import (
	"net/http"
	"strings"

	"github.com/trayfoods/trayfoods-backend/api/responses"
	"github.com/trayfoods/trayfoods-backend/internal/ledger"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
)

type bankResponse struct {
	Name string `json:"name"`
	Code string `json:"code"`
	Slug string `json:"slug"`
}

// ListBanks returns the gateway bank directory for the withdrawal form.
func ListBanks(directory *ledger.BankDirectory, defaultCurrency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := actorOr403(w, r, logg); !ok {
			return
		}
		currency := strings.TrimSpace(r.URL.Query().Get("currency"))
		if currency == "" {
			currency = defaultCurrency
		}
		banks, err := directory.ListBanks(r.Context(), currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]bankResponse, 0, len(banks))
		for _, b := range banks {
			out = append(out, bankResponse{Name: b.Name, Code: b.Code, Slug: b.Slug})
		}
		responses.WriteSuccess(w, out)
	}
}

type resolveAccountRequest struct {
	AccountNumber string `json:"accountNumber"`
	BankCode      string `json:"bankCode"`
}

type resolvedAccountResponse struct {
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
}

// ResolveBankAccount verifies an account number before a withdrawal
// recipient is created.
func ResolveBankAccount(directory *ledger.BankDirectory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := actorOr403(w, r, logg); !ok {
			return
		}
		var req resolveAccountRequest
		if !decodeBody(w, r, logg, &req) {
			return
		}
		resolved, err := directory.ResolveAccount(r.Context(), strings.TrimSpace(req.AccountNumber), strings.TrimSpace(req.BankCode))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resolvedAccountResponse{
			AccountName:   resolved.AccountName,
			AccountNumber: resolved.AccountNumber,
		})
	}
}
