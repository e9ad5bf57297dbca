package paystack

import "github.com/trayfoods/trayfoods-backend/pkg/money"

// InitializeCheckoutParams starts a hosted checkout session. Reference is
// the order track id and doubles as the gateway transaction reference.
type InitializeCheckoutParams struct {
	Amount      money.Money
	Reference   string
	Email       string
	CallbackURL string
}

// CheckoutSession is the minted hosted-payment page.
type CheckoutSession struct {
	PaymentURL string
	Reference  string
}

// TransferParams moves funds to a previously created recipient.
type TransferParams struct {
	Amount        money.Money
	Reference     string
	RecipientCode string
	Reason        string
}

// TransferResult reports whether the gateway queued the transfer.
type TransferResult struct {
	Accepted bool
	Message  string
}

// RecipientParams registers a bank account as a transfer destination.
type RecipientParams struct {
	Type          string
	Name          string
	AccountNumber string
	BankCode      string
	Currency      string
}

// RefundParams refunds part of a settled charge.
type RefundParams struct {
	TransactionReference string
	Amount               money.Money
}

// RefundResult reports whether the gateway queued the refund.
type RefundResult struct {
	Accepted bool
	Message  string
}

// Bank is one entry of the gateway's bank directory.
type Bank struct {
	Name string `json:"name"`
	Code string `json:"code"`
	Slug string `json:"slug"`
}

// ResolvedAccount is the gateway's view of a bank account.
type ResolvedAccount struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankID        int    `json:"bank_id"`
}
