package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/trayfoods/trayfoods-backend/pkg/logger"
	"github.com/trayfoods/trayfoods-backend/pkg/paystack"
	"github.com/trayfoods/trayfoods-backend/pkg/redis"
)

type fakeBankGateway struct {
	banks     []paystack.Bank
	listCalls int
	listErr   error

	resolved   *paystack.ResolvedAccount
	resolveErr error
}

func (f *fakeBankGateway) ListBanks(ctx context.Context, currency string, perPage, page int) ([]paystack.Bank, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.banks, nil
}

func (f *fakeBankGateway) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.ResolvedAccount, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.resolved, nil
}

type fakeBankCache struct {
	values map[string]string
	getErr error
	setErr error
}

func (f *fakeBankCache) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	val, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return val, nil
}

func (f *fakeBankCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = value.(string)
	return nil
}

func (f *fakeBankCache) CacheKey(scope, id string) string {
	return "cache:" + scope + ":" + id
}

func newBankDirectory(t *testing.T, gateway *fakeBankGateway, cache *fakeBankCache) *BankDirectory {
	t.Helper()
	var c redis.Cache
	if cache != nil {
		c = cache
	}
	dir, err := NewBankDirectory(gateway, c, 2*time.Minute, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("new bank directory: %v", err)
	}
	return dir
}

func TestListBanksCachesPerCurrency(t *testing.T) {
	gateway := &fakeBankGateway{banks: []paystack.Bank{{Name: "Access Bank", Code: "044", Slug: "access-bank"}}}
	cache := &fakeBankCache{}
	dir := newBankDirectory(t, gateway, cache)

	first, err := dir.ListBanks(context.Background(), "NGN")
	if err != nil {
		t.Fatalf("first list: %v", err)
	}
	if len(first) != 1 || first[0].Code != "044" {
		t.Fatalf("unexpected banks: %+v", first)
	}

	second, err := dir.ListBanks(context.Background(), "NGN")
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("unexpected cached banks: %+v", second)
	}
	if gateway.listCalls != 1 {
		t.Fatalf("expected one gateway call, got %d", gateway.listCalls)
	}
}

func TestListBanksSurvivesCacheOutage(t *testing.T) {
	gateway := &fakeBankGateway{banks: []paystack.Bank{{Name: "GTBank", Code: "058", Slug: "gtbank"}}}
	cache := &fakeBankCache{getErr: errors.New("redis down"), setErr: errors.New("redis down")}
	dir := newBankDirectory(t, gateway, cache)

	banks, err := dir.ListBanks(context.Background(), "NGN")
	if err != nil {
		t.Fatalf("list with cache down: %v", err)
	}
	if len(banks) != 1 || banks[0].Code != "058" {
		t.Fatalf("unexpected banks: %+v", banks)
	}
}

func TestListBanksRequiresCurrency(t *testing.T) {
	dir := newBankDirectory(t, &fakeBankGateway{}, nil)
	if _, err := dir.ListBanks(context.Background(), ""); err == nil {
		t.Fatal("expected validation error for empty currency")
	}
}

func TestResolveAccountValidatesInput(t *testing.T) {
	gateway := &fakeBankGateway{resolved: &paystack.ResolvedAccount{AccountName: "ADA OBI", AccountNumber: "0123456789"}}
	dir := newBankDirectory(t, gateway, nil)

	if _, err := dir.ResolveAccount(context.Background(), "", "058"); err == nil {
		t.Fatal("expected validation error for empty account number")
	}

	resolved, err := dir.ResolveAccount(context.Background(), "0123456789", "058")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.AccountName != "ADA OBI" {
		t.Fatalf("unexpected account name %q", resolved.AccountName)
	}
}
