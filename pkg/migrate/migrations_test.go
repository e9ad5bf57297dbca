package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/trayfoods/trayfoods-backend/pkg/migrate"
)

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestLedgerMigrationCarriesDedupeIndexes(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_core_tables.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no core tables migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE UNIQUE INDEX idx_wallets_profile_currency ON wallets (profile_id, currency)",
		"CREATE UNIQUE INDEX idx_transactions_external_ref ON transactions (external_ref) WHERE external_ref IS NOT NULL",
		"uncleared_balance numeric(14,2) NOT NULL DEFAULT 0",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestDispatchMigrationCarriesDedupeIndexes(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_orders_and_dispatch.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no orders and dispatch migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE UNIQUE INDEX idx_orders_track_id ON orders (track_id)",
		"CREATE UNIQUE INDEX idx_delivery_notifications_order_courier ON delivery_notifications (order_id, courier_id)",
		"CREATE UNIQUE INDEX idx_webhook_events_dedupe ON webhook_events (reference, kind, terminal_state)",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
