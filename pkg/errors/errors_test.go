package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataFor(t *testing.T) {
	meta := MetadataFor(CodeIllegalTransition)
	if meta.HTTPStatus != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status: %d", meta.HTTPStatus)
	}
	if meta.Retryable {
		t.Fatal("illegal transition must not be retryable")
	}

	fallback := MetadataFor(Code("NOT_A_CODE"))
	if fallback.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown code should fall back to internal, got %d", fallback.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("socket closed")
	err := Wrap(CodeGatewayUnavailable, cause, "initialize checkout")

	if !stdErrors.Is(err, cause) {
		t.Fatal("wrapped cause should be reachable via errors.Is")
	}
	if err.Code() != CodeGatewayUnavailable {
		t.Fatalf("unexpected code %s", err.Code())
	}
	if !IsRetryable(err) {
		t.Fatal("gateway unavailable should be retryable")
	}
}

func TestAsThroughWrapping(t *testing.T) {
	inner := New(CodeAmountMismatch, "debit recorded 510, webhook said 500")
	outer := fmt.Errorf("mark transfer: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error through fmt wrapping")
	}
	if typed.Code() != CodeAmountMismatch {
		t.Fatalf("unexpected code %s", typed.Code())
	}
	if !HasCode(outer, CodeAmountMismatch) {
		t.Fatal("HasCode should match through wrapping")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeGatewayBalanceLow, "transfer exceeds gateway balance").
		WithDetails(map[string]any{"max_transferable": "12000.00"})
	details, ok := err.Details().(map[string]any)
	if !ok {
		t.Fatalf("unexpected details type %T", err.Details())
	}
	if details["max_transferable"] != "12000.00" {
		t.Fatalf("details lost: %v", details)
	}
}
