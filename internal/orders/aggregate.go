package orders

import (
	"github.com/trayfoods/trayfoods-backend/pkg/enums"
	"github.com/trayfoods/trayfoods-backend/pkg/types"
)

// Lifecycle stage of each store sub-state along the main line. The two
// stage-2 states belong to different shipping modes, so a single order
// only ever sees one of them.
var storeStage = map[enums.StoreOrderStatus]int{
	enums.StoreOrderStatusPending:          0,
	enums.StoreOrderStatusAccepted:         1,
	enums.StoreOrderStatusReadyForPickup:   2,
	enums.StoreOrderStatusReadyForDelivery: 2,
	enums.StoreOrderStatusOutForDelivery:   3,
	enums.StoreOrderStatusPickedUp:         4,
	enums.StoreOrderStatusDelivered:        4,
}

var stageStatus = map[enums.StoreOrderStatus]enums.OrderStatus{
	enums.StoreOrderStatusAccepted:         enums.OrderStatusAccepted,
	enums.StoreOrderStatusReadyForPickup:   enums.OrderStatusReadyForPickup,
	enums.StoreOrderStatusReadyForDelivery: enums.OrderStatusReadyForDelivery,
	enums.StoreOrderStatusOutForDelivery:   enums.OrderStatusOutForDelivery,
	enums.StoreOrderStatusPickedUp:         enums.OrderStatusPickedUp,
	enums.StoreOrderStatusDelivered:        enums.OrderStatusDelivered,
}

var partialStatus = map[enums.OrderStatus]enums.OrderStatus{
	enums.OrderStatusAccepted:         enums.OrderStatusPartiallyAccepted,
	enums.OrderStatusReadyForPickup:   enums.OrderStatusPartiallyReadyForPickup,
	enums.OrderStatusReadyForDelivery: enums.OrderStatusPartiallyReadyForDelivery,
	enums.OrderStatusOutForDelivery:   enums.OrderStatusPartiallyOutForDelivery,
	enums.OrderStatusPickedUp:         enums.OrderStatusPartiallyPickedUp,
	enums.OrderStatusDelivered:        enums.OrderStatusPartiallyDelivered,
}

// refund-branch states descend from a rejection or cancellation; for
// aggregation they count with the rejected side.
func isRejectedLike(s enums.StoreOrderStatus) bool {
	switch s {
	case enums.StoreOrderStatusRejected, enums.StoreOrderStatusPendingRefund,
		enums.StoreOrderStatusFailedRefund, enums.StoreOrderStatusRefunded:
		return true
	default:
		return false
	}
}

// Aggregate derives the global order status from the per-store vector.
// It is the only way a global status is ever computed; handlers never
// write it directly.
func Aggregate(ss types.StoresStatus) enums.OrderStatus {
	if len(ss) == 0 {
		return enums.OrderStatusNotStarted
	}

	var (
		total        = len(ss)
		noCourier    int
		cancelled    int
		rejectedLike int
	)
	for _, entry := range ss {
		switch {
		case entry.Status == enums.StoreOrderStatusNoDeliveryPerson:
			noCourier++
		case entry.Status == enums.StoreOrderStatusCancelled:
			cancelled++
		case isRejectedLike(entry.Status):
			rejectedLike++
		}
	}
	terminal := noCourier + cancelled + rejectedLike

	if noCourier == total {
		return enums.OrderStatusNoDeliveryPeople
	}
	if terminal == total {
		switch {
		case cancelled > 0 && rejectedLike == 0:
			return enums.OrderStatusCancelled
		case rejectedLike > 0 && cancelled == 0:
			return enums.OrderStatusRejected
		default:
			return enums.OrderStatusPartiallyCancelled
		}
	}

	// Furthest stage reached among stores still on the main line.
	var (
		maxStage   = -1
		maxStatus  enums.StoreOrderStatus
		activeSeen int
		atMax      int
	)
	for _, entry := range ss {
		stage, active := storeStage[entry.Status]
		if !active {
			continue
		}
		activeSeen++
		if stage > maxStage {
			maxStage = stage
			maxStatus = entry.Status
			atMax = 1
		} else if stage == maxStage {
			atMax++
		}
	}

	if maxStage == 0 {
		// Decision phase: nothing beyond pending on the main line.
		switch {
		case rejectedLike > 0 && cancelled == 0:
			return enums.OrderStatusPartiallyRejected
		case cancelled > 0:
			return enums.OrderStatusPartiallyCancelled
		default:
			return enums.OrderStatusProcessing
		}
	}
	if maxStage == 1 && terminal > 0 {
		// A rejection or cancel beside fresh acceptances still reads as
		// the decision mix, matching what the customer sees refund-wise.
		if rejectedLike > 0 && cancelled == 0 {
			return enums.OrderStatusPartiallyRejected
		}
		if cancelled > 0 {
			return enums.OrderStatusPartiallyCancelled
		}
	}

	global := stageStatus[maxStatus]
	if atMax == activeSeen && terminal == 0 {
		return global
	}
	return partialStatus[global]
}
