package enums

import "fmt"

// TransactionKind classifies a wallet ledger entry.
type TransactionKind string

const (
	TransactionKindCredit   TransactionKind = "credit"
	TransactionKindDebit    TransactionKind = "debit"
	TransactionKindRefund   TransactionKind = "refund"
	TransactionKindReversal TransactionKind = "reversal"
	TransactionKindTransfer TransactionKind = "transfer"
)

var validTransactionKinds = []TransactionKind{
	TransactionKindCredit,
	TransactionKindDebit,
	TransactionKindRefund,
	TransactionKindReversal,
	TransactionKindTransfer,
}

func (k TransactionKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known TransactionKind.
func (k TransactionKind) IsValid() bool {
	for _, candidate := range validTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseTransactionKind converts raw input into a TransactionKind.
func ParseTransactionKind(value string) (TransactionKind, error) {
	for _, candidate := range validTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction kind %q", value)
}

// TransactionStatus tracks a ledger entry through its settlement lifecycle.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusUnsettled TransactionStatus = "unsettled"
	TransactionStatusSettled   TransactionStatus = "settled"
	TransactionStatusSuccess   TransactionStatus = "success"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusReversed  TransactionStatus = "reversed"
	TransactionStatusOnHold    TransactionStatus = "on-hold"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusPending,
	TransactionStatusUnsettled,
	TransactionStatusSettled,
	TransactionStatusSuccess,
	TransactionStatusFailed,
	TransactionStatusReversed,
	TransactionStatusOnHold,
}

func (s TransactionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransactionStatus.
func (s TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTransactionStatus converts raw input into a TransactionStatus.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	for _, candidate := range validTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}
