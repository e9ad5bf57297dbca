package enums

import "fmt"

// WalletBucket names one of the three balance columns a ledger entry moves.
type WalletBucket string

const (
	WalletBucketBalance          WalletBucket = "balance"
	WalletBucketUnclearedBalance WalletBucket = "uncleared_balance"
	WalletBucketClearedBalance   WalletBucket = "cleared_balance"
)

var validWalletBuckets = []WalletBucket{
	WalletBucketBalance,
	WalletBucketUnclearedBalance,
	WalletBucketClearedBalance,
}

func (b WalletBucket) String() string {
	return string(b)
}

// IsValid reports whether the value is a known WalletBucket.
func (b WalletBucket) IsValid() bool {
	for _, candidate := range validWalletBuckets {
		if candidate == b {
			return true
		}
	}
	return false
}

// Availability is a courier's duty state.
type Availability string

const (
	AvailabilityOnline  Availability = "online"
	AvailabilityOffline Availability = "offline"
	AvailabilityBusy    Availability = "busy"
)

var validAvailabilities = []Availability{
	AvailabilityOnline,
	AvailabilityOffline,
	AvailabilityBusy,
}

func (a Availability) String() string {
	return string(a)
}

// IsValid reports whether the value is a known Availability.
func (a Availability) IsValid() bool {
	for _, candidate := range validAvailabilities {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAvailability converts raw input into an Availability.
func ParseAvailability(value string) (Availability, error) {
	for _, candidate := range validAvailabilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid availability %q", value)
}

// DeliveryNotificationStatus tracks a delivery request sent to one courier.
type DeliveryNotificationStatus string

const (
	DeliveryNotificationStatusPending    DeliveryNotificationStatus = "pending"
	DeliveryNotificationStatusProcessing DeliveryNotificationStatus = "processing"
	DeliveryNotificationStatusAccepted   DeliveryNotificationStatus = "accepted"
	DeliveryNotificationStatusRejected   DeliveryNotificationStatus = "rejected"
	DeliveryNotificationStatusExpired    DeliveryNotificationStatus = "expired"
)

var validDeliveryNotificationStatuses = []DeliveryNotificationStatus{
	DeliveryNotificationStatusPending,
	DeliveryNotificationStatusProcessing,
	DeliveryNotificationStatusAccepted,
	DeliveryNotificationStatusRejected,
	DeliveryNotificationStatusExpired,
}

func (s DeliveryNotificationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DeliveryNotificationStatus.
func (s DeliveryNotificationStatus) IsValid() bool {
	for _, candidate := range validDeliveryNotificationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// NotificationChannel is a delivery route for user-facing messages.
type NotificationChannel string

const (
	NotificationChannelPush  NotificationChannel = "push"
	NotificationChannelSMS   NotificationChannel = "sms"
	NotificationChannelEmail NotificationChannel = "email"
)

var validNotificationChannels = []NotificationChannel{
	NotificationChannelPush,
	NotificationChannelSMS,
	NotificationChannelEmail,
}

func (c NotificationChannel) String() string {
	return string(c)
}

// IsValid reports whether the value is a known NotificationChannel.
func (c NotificationChannel) IsValid() bool {
	for _, candidate := range validNotificationChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// Currency is the settlement currency of a wallet or charge.
type Currency string

const (
	CurrencyNGN Currency = "NGN"
	CurrencyGHS Currency = "GHS"
	CurrencyZAR Currency = "ZAR"
	CurrencyKES Currency = "KES"
)

var validCurrencies = []Currency{CurrencyNGN, CurrencyGHS, CurrencyZAR, CurrencyKES}

func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Currency.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts raw input into a Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
