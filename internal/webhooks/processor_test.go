package webhooks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/trayfoods/trayfoods-backend/internal/orders"
	"github.com/trayfoods/trayfoods-backend/pkg/db/models"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
	"github.com/trayfoods/trayfoods-backend/pkg/money"
)

type dedupeKey struct {
	reference, kind, state string
}

type fakeDedupe struct {
	rows map[dedupeKey]bool
}

func newFakeDedupe() *fakeDedupe {
	return &fakeDedupe{rows: map[dedupeKey]bool{}}
}

func (f *fakeDedupe) Seen(ctx context.Context, reference, kind, terminalState string) (bool, error) {
	return f.rows[dedupeKey{reference, kind, terminalState}], nil
}

func (f *fakeDedupe) RecordDelivery(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	key := dedupeKey{event.Reference, event.Kind, event.TerminalState}
	if f.rows[key] {
		return false, nil
	}
	f.rows[key] = true
	return true, nil
}

type fakeIdem struct {
	keys map[string]bool
	err  error
}

func (f *fakeIdem) Get(ctx context.Context, key string) (string, error) { return "", nil }

func (f *fakeIdem) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.keys == nil {
		f.keys = map[string]bool{}
	}
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeIdem) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (f *fakeIdem) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

type fakeOrders struct {
	charges          []orders.ChargeSuccessEvent
	refundsProcessed []money.Money
	refundsFailed    []money.Money
	err              error
}

func (f *fakeOrders) HandleChargeSuccess(ctx context.Context, event orders.ChargeSuccessEvent) error {
	if f.err != nil {
		return f.err
	}
	f.charges = append(f.charges, event)
	return nil
}

func (f *fakeOrders) HandleRefundProcessed(ctx context.Context, reference string, amount money.Money) error {
	if f.err != nil {
		return f.err
	}
	f.refundsProcessed = append(f.refundsProcessed, amount)
	return nil
}

func (f *fakeOrders) HandleRefundFailed(ctx context.Context, reference string, amount money.Money) error {
	if f.err != nil {
		return f.err
	}
	f.refundsFailed = append(f.refundsFailed, amount)
	return nil
}

type ledgerMark struct {
	kind, ref, gatewayID string
}

type fakeLedgerMarks struct {
	marks []ledgerMark
}

func (f *fakeLedgerMarks) MarkTransferSuccess(ctx context.Context, externalRef, gatewayID string, amount money.Money) error {
	f.marks = append(f.marks, ledgerMark{"success", externalRef, gatewayID})
	return nil
}

func (f *fakeLedgerMarks) MarkTransferFailed(ctx context.Context, externalRef string) error {
	f.marks = append(f.marks, ledgerMark{"failed", externalRef, ""})
	return nil
}

func (f *fakeLedgerMarks) MarkTransferReversed(ctx context.Context, externalRef string) error {
	f.marks = append(f.marks, ledgerMark{"reversed", externalRef, ""})
	return nil
}

type fakeSupport struct {
	subjects []string
}

func (f *fakeSupport) SendToSupport(ctx context.Context, subject, body string) error {
	f.subjects = append(f.subjects, subject)
	return nil
}

type processorEnv struct {
	processor *Processor
	dedupe    *fakeDedupe
	idem      *fakeIdem
	orders    *fakeOrders
	ledger    *fakeLedgerMarks
	support   *fakeSupport
}

func newProcessorEnv(t *testing.T) *processorEnv {
	t.Helper()
	env := &processorEnv{
		dedupe:  newFakeDedupe(),
		idem:    &fakeIdem{},
		orders:  &fakeOrders{},
		ledger:  &fakeLedgerMarks{},
		support: &fakeSupport{},
	}
	processor, err := NewProcessor(env.dedupe, env.idem, env.orders, env.ledger, env.support, "NGN",
		logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	env.processor = processor
	return env
}

func mustParse(t *testing.T, body string) *Event {
	t.Helper()
	event, err := ParseEvent([]byte(body))
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	return event
}

func TestProcessChargeSuccess(t *testing.T) {
	env := newProcessorEnv(t)
	event := mustParse(t, `{"event":"charge.success","data":{"reference":"order_ab12cd34ef","amount":145000,"channel":"card"}}`)

	if err := env.processor.Process(context.Background(), event); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(env.orders.charges) != 1 {
		t.Fatalf("charges = %d", len(env.orders.charges))
	}
	charge := env.orders.charges[0]
	if charge.Reference != "order_ab12cd34ef" || charge.AmountMinor != 145000 || charge.Channel != "card" {
		t.Fatalf("charge = %+v", charge)
	}
}

func TestProcessRedeliveryIsNoOp(t *testing.T) {
	env := newProcessorEnv(t)
	event := mustParse(t, `{"event":"charge.success","data":{"reference":"order_ab12cd34ef","amount":145000}}`)

	if err := env.processor.Process(context.Background(), event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := env.processor.Process(context.Background(), event); err != nil {
		t.Fatalf("re-delivery must be acknowledged: %v", err)
	}
	if len(env.orders.charges) != 1 {
		t.Fatalf("handler ran %d times, want 1", len(env.orders.charges))
	}
}

func TestProcessFailureReleasesMarkerForRetry(t *testing.T) {
	env := newProcessorEnv(t)
	env.orders.err = errors.New("database down")
	event := mustParse(t, `{"event":"charge.success","data":{"reference":"order_ab12cd34ef","amount":145000}}`)

	if err := env.processor.Process(context.Background(), event); err == nil {
		t.Fatal("expected the handler failure to surface")
	}

	env.orders.err = nil
	if err := env.processor.Process(context.Background(), event); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if len(env.orders.charges) != 1 {
		t.Fatalf("handler ran %d times after retry, want 1", len(env.orders.charges))
	}
}

func TestProcessTransferEvents(t *testing.T) {
	env := newProcessorEnv(t)
	for _, body := range []string{
		`{"event":"transfer.success","data":{"reference":"wd_123","id":7654321,"transfer_code":"TRF_x","amount":50000}}`,
		`{"event":"transfer.failed","data":{"reference":"wd_124"}}`,
		`{"event":"transfer.reversed","data":{"reference":"wd_125"}}`,
	} {
		if err := env.processor.Process(context.Background(), mustParse(t, body)); err != nil {
			t.Fatalf("process %s: %v", body, err)
		}
	}
	// transfer.success carries the payload id, not the transfer code
	want := []ledgerMark{{"success", "wd_123", "7654321"}, {"failed", "wd_124", ""}, {"reversed", "wd_125", ""}}
	if len(env.ledger.marks) != len(want) {
		t.Fatalf("marks = %v", env.ledger.marks)
	}
	for i, mark := range want {
		if env.ledger.marks[i] != mark {
			t.Fatalf("mark[%d] = %v, want %v", i, env.ledger.marks[i], mark)
		}
	}
}

func TestProcessRefundEventsUseTransactionReference(t *testing.T) {
	env := newProcessorEnv(t)
	event := mustParse(t, `{"event":"refund.processed","data":{"transaction_reference":"order_ab12cd34ef","amount":55000}}`)

	if err := env.processor.Process(context.Background(), event); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(env.orders.refundsProcessed) != 1 {
		t.Fatalf("refunds = %d", len(env.orders.refundsProcessed))
	}
	if got := env.orders.refundsProcessed[0].Amount.StringFixed(2); got != "550.00" {
		t.Fatalf("refund amount = %s, want 550.00", got)
	}
}

func TestProcessDisputeGoesToSupport(t *testing.T) {
	env := newProcessorEnv(t)
	event := mustParse(t, `{"event":"charge.dispute.create","data":{"reference":"order_ab12cd34ef","status":"awaiting-merchant-feedback"}}`)

	if err := env.processor.Process(context.Background(), event); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(env.support.subjects) != 1 {
		t.Fatalf("support mails = %d", len(env.support.subjects))
	}
}

func TestProcessDisputeWithoutReferenceStillReachesSupport(t *testing.T) {
	env := newProcessorEnv(t)
	event := mustParse(t, `{"event":"charge.dispute.remind","data":{"status":"pending","dispute":{"id":991}}}`)

	if err := env.processor.Process(context.Background(), event); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(env.support.subjects) != 1 {
		t.Fatalf("support mails = %d, want 1", len(env.support.subjects))
	}
}

func TestProcessIntermediateRefundStatesAcknowledged(t *testing.T) {
	env := newProcessorEnv(t)
	for _, kind := range []string{"refund.pending", "refund.processing"} {
		event := mustParse(t, `{"event":"`+kind+`","data":{"transaction_reference":"order_ab12cd34ef","amount":100}}`)
		if err := env.processor.Process(context.Background(), event); err != nil {
			t.Fatalf("process %s: %v", kind, err)
		}
	}
	if len(env.orders.refundsProcessed)+len(env.orders.refundsFailed) != 0 {
		t.Fatal("intermediate refund states must not reach the engine")
	}
}

func TestProcessUnknownKindAcknowledged(t *testing.T) {
	env := newProcessorEnv(t)
	event := mustParse(t, `{"event":"subscription.create","data":{"reference":"sub_1"}}`)
	if err := env.processor.Process(context.Background(), event); err != nil {
		t.Fatalf("unknown kinds must be acknowledged: %v", err)
	}
}

func TestProcessSurvivesRedisOutage(t *testing.T) {
	env := newProcessorEnv(t)
	env.idem.err = errors.New("redis down")
	event := mustParse(t, `{"event":"charge.success","data":{"reference":"order_ab12cd34ef","amount":145000}}`)

	if err := env.processor.Process(context.Background(), event); err != nil {
		t.Fatalf("process without redis: %v", err)
	}
	if len(env.orders.charges) != 1 {
		t.Fatal("handler should still run on database dedupe alone")
	}
}

func TestParseEventRejectsGarbage(t *testing.T) {
	if _, err := ParseEvent([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := ParseEvent([]byte(`{"data":{}}`)); err == nil {
		t.Fatal("expected missing event kind error")
	}
}
