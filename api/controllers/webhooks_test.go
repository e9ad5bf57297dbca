package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/trayfoods/trayfoods-backend/internal/webhooks"
	pkgerrors "github.com/trayfoods/trayfoods-backend/pkg/errors"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
	"github.com/trayfoods/trayfoods-backend/pkg/security"
)

type fakeProcessor struct {
	events []*webhooks.Event
	err    error
}

func (f *fakeProcessor) Process(ctx context.Context, event *webhooks.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type staticSecret string

func (s staticSecret) SigningSecret() string { return string(s) }

func newWebhookRequest(t *testing.T, secret string, body []byte, sign bool) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(body))
	if sign {
		req.Header.Set("x-paystack-signature", security.SignPayload(secret, body))
	}
	return req
}

func webhookTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test"})
}

func TestPaystackWebhookAcceptsSignedEvent(t *testing.T) {
	processor := &fakeProcessor{}
	handler := PaystackWebhook(processor, staticSecret("sk_test_abc"), webhookTestLogger())
	body := []byte(`{"event":"charge.success","data":{"reference":"order_ab12cd34ef","amount":145000}}`)

	rec := httptest.NewRecorder()
	handler(rec, newWebhookRequest(t, "sk_test_abc", body, true))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(processor.events) != 1 {
		t.Fatalf("processed %d events", len(processor.events))
	}
	if processor.events[0].Kind != "charge.success" {
		t.Fatalf("kind = %s", processor.events[0].Kind)
	}
}

func TestPaystackWebhookRejectsMissingSignature(t *testing.T) {
	processor := &fakeProcessor{}
	handler := PaystackWebhook(processor, staticSecret("sk_test_abc"), webhookTestLogger())
	body := []byte(`{"event":"charge.success","data":{"reference":"order_ab12cd34ef"}}`)

	rec := httptest.NewRecorder()
	handler(rec, newWebhookRequest(t, "sk_test_abc", body, false))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(processor.events) != 0 {
		t.Fatal("unsigned event must never reach the processor")
	}
}

func TestPaystackWebhookRejectsForgedSignature(t *testing.T) {
	processor := &fakeProcessor{}
	handler := PaystackWebhook(processor, staticSecret("sk_test_abc"), webhookTestLogger())
	body := []byte(`{"event":"charge.success","data":{"reference":"order_ab12cd34ef"}}`)

	req := newWebhookRequest(t, "wrong_secret", body, true)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPaystackWebhookSurfacesRetryableFailures(t *testing.T) {
	processor := &fakeProcessor{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "route event")}
	handler := PaystackWebhook(processor, staticSecret("sk_test_abc"), webhookTestLogger())
	body := []byte(`{"event":"charge.success","data":{"reference":"order_ab12cd34ef"}}`)

	rec := httptest.NewRecorder()
	handler(rec, newWebhookRequest(t, "sk_test_abc", body, true))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 so the gateway retries", rec.Code)
	}
}

func TestPaystackWebhookRejectsGarbagePayload(t *testing.T) {
	processor := &fakeProcessor{}
	handler := PaystackWebhook(processor, staticSecret("sk_test_abc"), webhookTestLogger())
	body := []byte(`not json`)

	rec := httptest.NewRecorder()
	handler(rec, newWebhookRequest(t, "sk_test_abc", body, true))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Error.Code != "VALIDATION" {
		t.Fatalf("code = %s", envelope.Error.Code)
	}
}
