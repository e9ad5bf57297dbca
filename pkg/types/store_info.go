package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderItem is one cart line frozen into the order at composition time.
// Later catalog edits never touch these values.
type OrderItem struct {
	Slug              string          `json:"slug"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	Quantity          int             `json:"quantity"`
	PlatePrice        decimal.Decimal `json:"plate_price"`
	OptionGroupsPrice decimal.Decimal `json:"option_groups_price"`
}

// StoreTotal carries the frozen per-store price breakdown.
type StoreTotal struct {
	Price             decimal.Decimal `json:"price"`
	PlatePrice        decimal.Decimal `json:"plate_price"`
	OptionGroupsPrice decimal.Decimal `json:"option_groups_price"`
}

// StoreCount carries item and plate counts for the store's slice.
type StoreCount struct {
	Items int `json:"items"`
	Plate int `json:"plate"`
}

// StoreInfo is one store's frozen slice of an order.
type StoreInfo struct {
	ID      string      `json:"id"`
	StoreID string      `json:"storeId"`
	Items   []OrderItem `json:"items"`
	Total   StoreTotal  `json:"total"`
	Count   StoreCount  `json:"count"`
}

// GrossTotal is the store's full share of the goods price.
func (s StoreInfo) GrossTotal() decimal.Decimal {
	return s.Total.Price.Add(s.Total.PlatePrice).Add(s.Total.OptionGroupsPrice)
}

// StoreInfos is the stores_infos jsonb column.
type StoreInfos []StoreInfo

// Validate checks structural integrity of the frozen store slices.
func (s StoreInfos) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("stores_infos must not be empty")
	}
	seen := make(map[string]struct{}, len(s))
	for _, info := range s {
		if info.StoreID == "" {
			return fmt.Errorf("stores_infos entry missing storeId")
		}
		if _, dup := seen[info.StoreID]; dup {
			return fmt.Errorf("duplicate storeId %q in stores_infos", info.StoreID)
		}
		seen[info.StoreID] = struct{}{}
		if len(info.Items) == 0 {
			return fmt.Errorf("store %q has no items", info.StoreID)
		}
		for _, item := range info.Items {
			if item.Slug == "" {
				return fmt.Errorf("store %q has an item without a slug", info.StoreID)
			}
			if item.Quantity <= 0 {
				return fmt.Errorf("item %q has non-positive quantity", item.Slug)
			}
			if item.Price.IsNegative() {
				return fmt.Errorf("item %q has negative price", item.Slug)
			}
		}
	}
	return nil
}

// ByStore returns the info for a store id.
func (s StoreInfos) ByStore(storeID string) (StoreInfo, bool) {
	for _, info := range s {
		if info.StoreID == storeID {
			return info, true
		}
	}
	return StoreInfo{}, false
}

// StoreIDs lists the store ids in order.
func (s StoreInfos) StoreIDs() []string {
	ids := make([]string, 0, len(s))
	for _, info := range s {
		ids = append(ids, info.StoreID)
	}
	return ids
}
