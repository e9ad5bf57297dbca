package types

import (
	"fmt"

	"github.com/trayfoods/trayfoods-backend/pkg/enums"
)

// DeliveryPerson is a courier's entry in the delivery_people vector,
// scoped to a single store of the order.
type DeliveryPerson struct {
	ID      string                   `json:"id"`
	StoreID string                   `json:"storeId"`
	Status  enums.CourierOrderStatus `json:"status"`
}

// DeliveryPeople is the delivery_people jsonb column, unique per
// (courier, store) pair.
type DeliveryPeople []DeliveryPerson

// Validate checks uniqueness and status membership.
func (d DeliveryPeople) Validate() error {
	type key struct{ courier, store string }
	seen := make(map[key]struct{}, len(d))
	for _, entry := range d {
		if entry.ID == "" || entry.StoreID == "" {
			return fmt.Errorf("delivery_people entry missing id or storeId")
		}
		k := key{entry.ID, entry.StoreID}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("duplicate courier %q for store %q in delivery_people", entry.ID, entry.StoreID)
		}
		seen[k] = struct{}{}
		if !entry.Status.IsValid() {
			return fmt.Errorf("courier %q has unknown status %q", entry.ID, entry.Status)
		}
	}
	return nil
}

// ForStore returns the courier entry serving a store, skipping rejections.
func (d DeliveryPeople) ForStore(storeID string) (DeliveryPerson, bool) {
	for _, entry := range d {
		if entry.StoreID == storeID && entry.Status != enums.CourierOrderStatusRejected {
			return entry, true
		}
	}
	return DeliveryPerson{}, false
}

// ForCourier returns the entry for a courier across the whole order.
func (d DeliveryPeople) ForCourier(courierID string) (DeliveryPerson, bool) {
	for _, entry := range d {
		if entry.ID == courierID {
			return entry, true
		}
	}
	return DeliveryPerson{}, false
}

// Set replaces the status for a (courier, store) pair, appending when
// absent, and returns the updated vector.
func (d DeliveryPeople) Set(courierID, storeID string, status enums.CourierOrderStatus) DeliveryPeople {
	for i, entry := range d {
		if entry.ID == courierID && entry.StoreID == storeID {
			d[i].Status = status
			return d
		}
	}
	return append(d, DeliveryPerson{ID: courierID, StoreID: storeID, Status: status})
}

// ActiveCount counts couriers engaged on the order (not rejected).
func (d DeliveryPeople) ActiveCount() int {
	n := 0
	for _, entry := range d {
		if entry.Status != enums.CourierOrderStatusRejected {
			n++
		}
	}
	return n
}
