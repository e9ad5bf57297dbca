package enums

import "testing"

func TestParseStoreOrderStatus(t *testing.T) {
	got, err := ParseStoreOrderStatus("ready-for-delivery")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if got != StoreOrderStatusReadyForDelivery {
		t.Fatalf("got %s", got)
	}

	if _, err := ParseStoreOrderStatus("shipped"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestStoreOrderStatusTerminalBranch(t *testing.T) {
	terminal := []StoreOrderStatus{
		StoreOrderStatusRejected,
		StoreOrderStatusCancelled,
		StoreOrderStatusPendingRefund,
		StoreOrderStatusFailedRefund,
		StoreOrderStatusRefunded,
		StoreOrderStatusNoDeliveryPerson,
	}
	for _, s := range terminal {
		if !s.IsTerminalBranch() {
			t.Errorf("%s should be terminal-branch", s)
		}
	}
	active := []StoreOrderStatus{
		StoreOrderStatusPending,
		StoreOrderStatusAccepted,
		StoreOrderStatusOutForDelivery,
		StoreOrderStatusDelivered,
	}
	for _, s := range active {
		if s.IsTerminalBranch() {
			t.Errorf("%s should not be terminal-branch", s)
		}
	}
}

func TestOrderStatusValidity(t *testing.T) {
	if !OrderStatusPartiallyDelivered.IsValid() {
		t.Fatal("partially-delivered should be valid")
	}
	if OrderStatus("half-delivered").IsValid() {
		t.Fatal("made-up status should be invalid")
	}
}

func TestTransactionEnums(t *testing.T) {
	if _, err := ParseTransactionKind("credit"); err != nil {
		t.Fatalf("parse kind: %v", err)
	}
	if _, err := ParseTransactionStatus("unsettled"); err != nil {
		t.Fatalf("parse status: %v", err)
	}
	if TransactionStatus("cleared").IsValid() {
		t.Fatal("unknown transaction status should be invalid")
	}
}
