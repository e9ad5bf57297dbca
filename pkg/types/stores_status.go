package types

import (
	"fmt"

	"github.com/trayfoods/trayfoods-backend/pkg/enums"
)

// StoreStatus is one store's entry in the stores_status vector.
type StoreStatus struct {
	StoreID string                 `json:"storeId"`
	Status  enums.StoreOrderStatus `json:"status"`
}

// StoresStatus is the stores_status jsonb column, unique per storeId.
type StoresStatus []StoreStatus

// Validate checks uniqueness and status membership.
func (s StoresStatus) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for _, entry := range s {
		if entry.StoreID == "" {
			return fmt.Errorf("stores_status entry missing storeId")
		}
		if _, dup := seen[entry.StoreID]; dup {
			return fmt.Errorf("duplicate storeId %q in stores_status", entry.StoreID)
		}
		seen[entry.StoreID] = struct{}{}
		if !entry.Status.IsValid() {
			return fmt.Errorf("store %q has unknown status %q", entry.StoreID, entry.Status)
		}
	}
	return nil
}

// Get returns the status for a store id.
func (s StoresStatus) Get(storeID string) (enums.StoreOrderStatus, bool) {
	for _, entry := range s {
		if entry.StoreID == storeID {
			return entry.Status, true
		}
	}
	return "", false
}

// Set replaces the status for a store id, appending when absent, and
// returns the updated vector.
func (s StoresStatus) Set(storeID string, status enums.StoreOrderStatus) StoresStatus {
	for i, entry := range s {
		if entry.StoreID == storeID {
			s[i].Status = status
			return s
		}
	}
	return append(s, StoreStatus{StoreID: storeID, Status: status})
}

// Statuses returns the bare status vector.
func (s StoresStatus) Statuses() []enums.StoreOrderStatus {
	out := make([]enums.StoreOrderStatus, 0, len(s))
	for _, entry := range s {
		out = append(out, entry.Status)
	}
	return out
}

// AllIn reports whether every entry has one of the given statuses.
func (s StoresStatus) AllIn(statuses ...enums.StoreOrderStatus) bool {
	if len(s) == 0 {
		return false
	}
	for _, entry := range s {
		matched := false
		for _, want := range statuses {
			if entry.Status == want {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// AnyIn reports whether at least one entry has one of the given statuses.
func (s StoresStatus) AnyIn(statuses ...enums.StoreOrderStatus) bool {
	for _, entry := range s {
		for _, want := range statuses {
			if entry.Status == want {
				return true
			}
		}
	}
	return false
}
