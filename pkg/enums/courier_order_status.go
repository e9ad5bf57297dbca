package enums

import "fmt"

// CourierOrderStatus tracks a courier's engagement with one store of an order.
type CourierOrderStatus string

const (
	CourierOrderStatusPending        CourierOrderStatus = "pending"
	CourierOrderStatusAccepted       CourierOrderStatus = "accepted"
	CourierOrderStatusOutForDelivery CourierOrderStatus = "out-for-delivery"
	CourierOrderStatusDelivered      CourierOrderStatus = "delivered"
	CourierOrderStatusRejected       CourierOrderStatus = "rejected"
)

var validCourierOrderStatuses = []CourierOrderStatus{
	CourierOrderStatusPending,
	CourierOrderStatusAccepted,
	CourierOrderStatusOutForDelivery,
	CourierOrderStatusDelivered,
	CourierOrderStatusRejected,
}

func (s CourierOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CourierOrderStatus.
func (s CourierOrderStatus) IsValid() bool {
	for _, candidate := range validCourierOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCourierOrderStatus converts raw input into a CourierOrderStatus.
func ParseCourierOrderStatus(value string) (CourierOrderStatus, error) {
	for _, candidate := range validCourierOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid courier order status %q", value)
}
