package enums

import "fmt"

// OrderStatus is the aggregate status of a whole order, derived from the
// per-store statuses and never written directly by request handlers.
type OrderStatus string

const (
	OrderStatusNotStarted                OrderStatus = "not-started"
	OrderStatusProcessing                OrderStatus = "processing"
	OrderStatusAccepted                  OrderStatus = "accepted"
	OrderStatusPartiallyAccepted         OrderStatus = "partially-accepted"
	OrderStatusRejected                  OrderStatus = "rejected"
	OrderStatusPartiallyRejected         OrderStatus = "partially-rejected"
	OrderStatusReadyForPickup            OrderStatus = "ready-for-pickup"
	OrderStatusPartiallyReadyForPickup   OrderStatus = "partially-ready-for-pickup"
	OrderStatusReadyForDelivery          OrderStatus = "ready-for-delivery"
	OrderStatusPartiallyReadyForDelivery OrderStatus = "partially-ready-for-delivery"
	OrderStatusOutForDelivery            OrderStatus = "out-for-delivery"
	OrderStatusPartiallyOutForDelivery   OrderStatus = "partially-out-for-delivery"
	OrderStatusPickedUp                  OrderStatus = "picked-up"
	OrderStatusPartiallyPickedUp         OrderStatus = "partially-picked-up"
	OrderStatusDelivered                 OrderStatus = "delivered"
	OrderStatusPartiallyDelivered        OrderStatus = "partially-delivered"
	OrderStatusCancelled                 OrderStatus = "cancelled"
	OrderStatusPartiallyCancelled        OrderStatus = "partially-cancelled"
	OrderStatusNoDeliveryPeople          OrderStatus = "no-delivery-people"
	OrderStatusFailed                    OrderStatus = "failed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusNotStarted,
	OrderStatusProcessing,
	OrderStatusAccepted,
	OrderStatusPartiallyAccepted,
	OrderStatusRejected,
	OrderStatusPartiallyRejected,
	OrderStatusReadyForPickup,
	OrderStatusPartiallyReadyForPickup,
	OrderStatusReadyForDelivery,
	OrderStatusPartiallyReadyForDelivery,
	OrderStatusOutForDelivery,
	OrderStatusPartiallyOutForDelivery,
	OrderStatusPickedUp,
	OrderStatusPartiallyPickedUp,
	OrderStatusDelivered,
	OrderStatusPartiallyDelivered,
	OrderStatusCancelled,
	OrderStatusPartiallyCancelled,
	OrderStatusNoDeliveryPeople,
	OrderStatusFailed,
}

func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
