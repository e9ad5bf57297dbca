package orders

import (
	"context"

	"github.com/google/uuid"

	"github.com/trayfoods/trayfoods-backend/pkg/db/models"
	"github.com/trayfoods/trayfoods-backend/pkg/enums"
)

// RoleSet is the view mask an actor holds on one order. A profile can
// hold several roles at once, e.g. a vendor ordering from other stores.
type RoleSet struct {
	Customer bool
	// VendorStores lists the order's stores owned by the actor.
	VendorStores []uuid.UUID
	// CourierFor lists the order's stores the actor delivers.
	CourierFor []uuid.UUID
}

// Has reports whether the set grants the given role.
func (r RoleSet) Has(role enums.ActorRole) bool {
	switch role {
	case enums.ActorRoleCustomer:
		return r.Customer
	case enums.ActorRoleVendor:
		return len(r.VendorStores) > 0
	case enums.ActorRoleDeliveryPerson:
		return len(r.CourierFor) > 0
	default:
		return false
	}
}

// Empty reports whether the actor has no relationship to the order.
func (r RoleSet) Empty() bool {
	return !r.Customer && len(r.VendorStores) == 0 && len(r.CourierFor) == 0
}

// Roles derives the actor's relationship to an order from the catalog.
func (s *service) Roles(ctx context.Context, order *models.Order, profileID uuid.UUID) (RoleSet, error) {
	set := RoleSet{Customer: order.CustomerID == profileID}

	for _, info := range order.StoresInfos {
		storeID, err := uuid.Parse(info.StoreID)
		if err != nil {
			continue
		}
		store, err := s.repo.GetStore(ctx, storeID)
		if err != nil {
			return RoleSet{}, err
		}
		if store != nil && store.ProfileID == profileID {
			set.VendorStores = append(set.VendorStores, storeID)
		}
	}

	for _, entry := range order.DeliveryPeople {
		if entry.Status == enums.CourierOrderStatusRejected {
			continue
		}
		courierID, err := uuid.Parse(entry.ID)
		if err != nil {
			continue
		}
		courier, err := s.repo.GetCourier(ctx, courierID)
		if err != nil {
			return RoleSet{}, err
		}
		if courier != nil && courier.ProfileID == profileID {
			storeID, err := uuid.Parse(entry.StoreID)
			if err != nil {
				continue
			}
			set.CourierFor = append(set.CourierFor, storeID)
		}
	}
	return set, nil
}
