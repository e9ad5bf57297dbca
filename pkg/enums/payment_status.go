package enums

import "fmt"

// PaymentStatus is the money-side status of an order, advanced only by
// webhook confirmations and the refund workflow.
type PaymentStatus string

const (
	PaymentStatusPending               PaymentStatus = "pending"
	PaymentStatusSuccess               PaymentStatus = "success"
	PaymentStatusFailed                PaymentStatus = "failed"
	PaymentStatusPendingRefund         PaymentStatus = "pending-refund"
	PaymentStatusAwaitingRefundAction  PaymentStatus = "awaiting-refund-action"
	PaymentStatusPartiallyRefunded     PaymentStatus = "partially-refunded"
	PaymentStatusRefunded              PaymentStatus = "refunded"
	PaymentStatusPartiallyFailedRefund PaymentStatus = "partially-failed-refund"
	PaymentStatusFailedRefund          PaymentStatus = "failed-refund"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusSuccess,
	PaymentStatusFailed,
	PaymentStatusPendingRefund,
	PaymentStatusAwaitingRefundAction,
	PaymentStatusPartiallyRefunded,
	PaymentStatusRefunded,
	PaymentStatusPartiallyFailedRefund,
	PaymentStatusFailedRefund,
}

func (s PaymentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PaymentStatus.
func (s PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
