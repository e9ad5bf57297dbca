package types

import "fmt"

// PickupAddress is the sentinel address marking a self-pickup order.
const PickupAddress = "pickup"

// Shipping is the shipping jsonb column.
type Shipping struct {
	Address string `json:"address"`
	Sch     string `json:"sch,omitempty"`
	Batch   string `json:"batch,omitempty"`
}

// IsPickup reports whether the customer collects the order themselves.
func (s Shipping) IsPickup() bool {
	return s.Address == PickupAddress
}

// Validate checks that an address is present.
func (s Shipping) Validate() error {
	if s.Address == "" {
		return fmt.Errorf("shipping address is required")
	}
	return nil
}
