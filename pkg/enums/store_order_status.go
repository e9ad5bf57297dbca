package enums

import "fmt"

// StoreOrderStatus tracks a single store's slice of an order.
type StoreOrderStatus string

const (
	StoreOrderStatusPending          StoreOrderStatus = "pending"
	StoreOrderStatusAccepted         StoreOrderStatus = "accepted"
	StoreOrderStatusRejected         StoreOrderStatus = "rejected"
	StoreOrderStatusReadyForPickup   StoreOrderStatus = "ready-for-pickup"
	StoreOrderStatusReadyForDelivery StoreOrderStatus = "ready-for-delivery"
	StoreOrderStatusOutForDelivery   StoreOrderStatus = "out-for-delivery"
	StoreOrderStatusPickedUp         StoreOrderStatus = "picked-up"
	StoreOrderStatusDelivered        StoreOrderStatus = "delivered"
	StoreOrderStatusCancelled        StoreOrderStatus = "cancelled"
	StoreOrderStatusPendingRefund    StoreOrderStatus = "pending-refund"
	StoreOrderStatusFailedRefund     StoreOrderStatus = "failed-refund"
	StoreOrderStatusRefunded         StoreOrderStatus = "refunded"
	StoreOrderStatusNoDeliveryPerson StoreOrderStatus = "no-delivery-person"
)

var validStoreOrderStatuses = []StoreOrderStatus{
	StoreOrderStatusPending,
	StoreOrderStatusAccepted,
	StoreOrderStatusRejected,
	StoreOrderStatusReadyForPickup,
	StoreOrderStatusReadyForDelivery,
	StoreOrderStatusOutForDelivery,
	StoreOrderStatusPickedUp,
	StoreOrderStatusDelivered,
	StoreOrderStatusCancelled,
	StoreOrderStatusPendingRefund,
	StoreOrderStatusFailedRefund,
	StoreOrderStatusRefunded,
	StoreOrderStatusNoDeliveryPerson,
}

// String implements fmt.Stringer.
func (s StoreOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StoreOrderStatus.
func (s StoreOrderStatus) IsValid() bool {
	for _, candidate := range validStoreOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminalBranch reports whether the status left the main delivery line
// (rejection, cancellation, refund bookkeeping, or courier drought).
func (s StoreOrderStatus) IsTerminalBranch() bool {
	switch s {
	case StoreOrderStatusRejected, StoreOrderStatusCancelled,
		StoreOrderStatusPendingRefund, StoreOrderStatusFailedRefund,
		StoreOrderStatusRefunded, StoreOrderStatusNoDeliveryPerson:
		return true
	default:
		return false
	}
}

// ParseStoreOrderStatus converts raw input into a StoreOrderStatus.
func ParseStoreOrderStatus(value string) (StoreOrderStatus, error) {
	for _, candidate := range validStoreOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid store order status %q", value)
}
