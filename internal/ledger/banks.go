package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pkgerrors "github.com/trayfoods/trayfoods-backend/pkg/errors"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
	"github.com/trayfoods/trayfoods-backend/pkg/paystack"
	"github.com/trayfoods/trayfoods-backend/pkg/redis"
)

const bankDirectoryPageSize = 100

type bankGateway interface {
	ListBanks(ctx context.Context, currency string, perPage, page int) ([]paystack.Bank, error)
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.ResolvedAccount, error)
}

// BankDirectory serves the gateway's bank list to withdrawal flows. The
// list changes rarely, so reads go through a short-lived cache; a cache
// outage falls back to the gateway.
type BankDirectory struct {
	gateway bankGateway
	cache   redis.Cache
	ttl     time.Duration
	logger  *logger.Logger
}

// NewBankDirectory wires the directory. A nil cache disables caching.
func NewBankDirectory(gateway bankGateway, cache redis.Cache, ttl time.Duration, logg *logger.Logger) (*BankDirectory, error) {
	if gateway == nil {
		return nil, fmt.Errorf("bank gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &BankDirectory{gateway: gateway, cache: cache, ttl: ttl, logger: logg}, nil
}

// ListBanks returns the bank directory for a currency, cached per currency.
func (d *BankDirectory) ListBanks(ctx context.Context, currency string) ([]paystack.Bank, error) {
	if currency == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency is required")
	}

	var key string
	if d.cache != nil && d.ttl > 0 {
		key = d.cache.CacheKey("banks", currency)
		cached, err := d.cache.Get(ctx, key)
		switch {
		case err == nil:
			var banks []paystack.Bank
			if err := json.Unmarshal([]byte(cached), &banks); err == nil {
				return banks, nil
			}
			d.logger.Warn(ctx, "bank cache entry unreadable, refreshing")
		case !redis.IsNil(err):
			d.logger.Warn(ctx, "bank cache read failed: "+err.Error())
		}
	}

	banks, err := d.gateway.ListBanks(ctx, currency, bankDirectoryPageSize, 1)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if payload, err := json.Marshal(banks); err == nil {
			if err := d.cache.Set(ctx, key, string(payload), d.ttl); err != nil {
				d.logger.Warn(ctx, "bank cache write failed: "+err.Error())
			}
		}
	}
	return banks, nil
}

// ResolveAccount verifies an account number against a bank code.
func (d *BankDirectory) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.ResolvedAccount, error) {
	if accountNumber == "" || bankCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account number and bank code are required")
	}
	return d.gateway.ResolveAccount(ctx, accountNumber, bankCode)
}
