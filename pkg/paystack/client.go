package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/trayfoods/trayfoods-backend/pkg/config"
	pkgerrors "github.com/trayfoods/trayfoods-backend/pkg/errors"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
	"github.com/trayfoods/trayfoods-backend/pkg/money"
)

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errLoggerRequired    = errors.New("paystack logger is required")
)

// Client wraps the Paystack REST API with centralized auth, logging, and
// error mapping. It performs no retries; callers own the retry policy.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	logger     *logger.Logger
}

// NewClient validates credentials and builds the gateway wrapper.
func NewClient(ctx context.Context, cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errSecretKeyRequired
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  secret,
		logger:     logg,
	}

	logg.Info(ctx, "paystack client initialized")
	return c, nil
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeCheckout mints a hosted payment page for the given reference.
func (c *Client) InitializeCheckout(ctx context.Context, params InitializeCheckoutParams) (*CheckoutSession, error) {
	body := map[string]any{
		"amount":    params.Amount.MinorUnits(),
		"currency":  params.Amount.Currency,
		"reference": params.Reference,
		"email":     params.Email,
	}
	if params.CallbackURL != "" {
		body["callback_url"] = params.CallbackURL
	}
	c.log(ctx, "request", "initialize_checkout", map[string]any{"reference": params.Reference, "amount": params.Amount.String()})

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		Reference        string `json:"reference"`
	}
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		c.log(ctx, "error", "initialize_checkout", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "initialize_checkout", map[string]any{"reference": data.Reference})
	return &CheckoutSession{PaymentURL: data.AuthorizationURL, Reference: data.Reference}, nil
}

// InitiateTransfer queues an outbound transfer. The terminal outcome
// arrives later over the transfer.* webhooks.
func (c *Client) InitiateTransfer(ctx context.Context, params TransferParams) (*TransferResult, error) {
	body := map[string]any{
		"source":    "balance",
		"amount":    params.Amount.MinorUnits(),
		"currency":  params.Amount.Currency,
		"reference": params.Reference,
		"recipient": params.RecipientCode,
	}
	if params.Reason != "" {
		body["reason"] = params.Reason
	}
	c.log(ctx, "request", "initiate_transfer", map[string]any{"reference": params.Reference, "amount": params.Amount.String()})

	var data struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/transfer", body, &data); err != nil {
		c.log(ctx, "error", "initiate_transfer", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "initiate_transfer", map[string]any{"status": data.Status})
	return &TransferResult{Accepted: true, Message: data.Status}, nil
}

// CreateRecipient registers a bank account for transfers.
func (c *Client) CreateRecipient(ctx context.Context, params RecipientParams) (string, error) {
	body := map[string]any{
		"type":           params.Type,
		"name":           params.Name,
		"account_number": params.AccountNumber,
		"bank_code":      params.BankCode,
		"currency":       params.Currency,
	}
	c.log(ctx, "request", "create_recipient", map[string]any{"bank_code": params.BankCode})

	var data struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := c.do(ctx, http.MethodPost, "/transferrecipient", body, &data); err != nil {
		c.log(ctx, "error", "create_recipient", map[string]any{"error": err.Error()})
		return "", err
	}

	c.log(ctx, "response", "create_recipient", map[string]any{"recipient_code": data.RecipientCode})
	return data.RecipientCode, nil
}

// Refund asks the gateway to refund part of a settled charge. The terminal
// outcome arrives later over the refund.* webhooks.
func (c *Client) Refund(ctx context.Context, params RefundParams) (*RefundResult, error) {
	body := map[string]any{
		"transaction": params.TransactionReference,
		"amount":      params.Amount.MinorUnits(),
	}
	c.log(ctx, "request", "refund", map[string]any{"reference": params.TransactionReference, "amount": params.Amount.String()})

	var data struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/refund", body, &data); err != nil {
		c.log(ctx, "error", "refund", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "refund", map[string]any{"status": data.Status})
	return &RefundResult{Accepted: true, Message: data.Status}, nil
}

// GetBalance returns the available gateway balance for a currency.
func (c *Client) GetBalance(ctx context.Context, currency string) (money.Money, error) {
	c.log(ctx, "request", "get_balance", map[string]any{"currency": currency})

	var data []struct {
		Currency string `json:"currency"`
		Balance  int64  `json:"balance"`
	}
	if err := c.do(ctx, http.MethodGet, "/balance", nil, &data); err != nil {
		c.log(ctx, "error", "get_balance", map[string]any{"error": err.Error()})
		return money.Money{}, err
	}

	for _, entry := range data {
		if strings.EqualFold(entry.Currency, currency) {
			return money.FromMinorUnits(entry.Balance, entry.Currency), nil
		}
	}
	return money.Zero(currency), nil
}

// ListBanks returns the gateway's bank directory for a currency.
func (c *Client) ListBanks(ctx context.Context, currency string, perPage, page int) ([]Bank, error) {
	query := url.Values{}
	query.Set("currency", currency)
	if perPage > 0 {
		query.Set("perPage", strconv.Itoa(perPage))
	}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	c.log(ctx, "request", "list_banks", map[string]any{"currency": currency})

	var data []Bank
	if err := c.do(ctx, http.MethodGet, "/bank?"+query.Encode(), nil, &data); err != nil {
		c.log(ctx, "error", "list_banks", map[string]any{"error": err.Error()})
		return nil, err
	}
	return data, nil
}

// ResolveAccount verifies a bank account number against its bank code.
func (c *Client) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*ResolvedAccount, error) {
	query := url.Values{}
	query.Set("account_number", accountNumber)
	query.Set("bank_code", bankCode)
	c.log(ctx, "request", "resolve_account", map[string]any{"bank_code": bankCode})

	var data ResolvedAccount
	if err := c.do(ctx, http.MethodGet, "/bank/resolve?"+query.Encode(), nil, &data); err != nil {
		c.log(ctx, "error", "resolve_account", map[string]any{"error": err.Error()})
		return nil, err
	}
	return &data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding gateway request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "gateway request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "reading gateway response")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return pkgerrors.Newf(pkgerrors.CodeGatewayUnavailable, "gateway returned status %d", resp.StatusCode)
		}
		return pkgerrors.Wrap(pkgerrors.CodeGatewayRejected, err, "decoding gateway response")
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return pkgerrors.Newf(pkgerrors.CodeGatewayUnavailable, "gateway returned status %d: %s", resp.StatusCode, env.Message)
	}
	if resp.StatusCode >= http.StatusBadRequest || !env.Status {
		if isBalanceLow(env.Message) {
			return pkgerrors.New(pkgerrors.CodeGatewayBalanceLow, env.Message)
		}
		return pkgerrors.New(pkgerrors.CodeGatewayRejected, fmt.Sprintf("gateway rejected request: %s", env.Message))
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeGatewayRejected, err, "decoding gateway payload")
		}
	}
	return nil
}

func isBalanceLow(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "balance") && (strings.Contains(lower, "insufficient") || strings.Contains(lower, "not enough"))
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("paystack %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("paystack %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "token", "email", "phone", "account_number"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
