package types

// DeviceTokens is a profile's push token list stored as jsonb.
type DeviceTokens []string
