package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trayfoods/trayfoods-backend/internal/notify"
	"github.com/trayfoods/trayfoods-backend/pkg/config"
	"github.com/trayfoods/trayfoods-backend/pkg/db/models"
	"github.com/trayfoods/trayfoods-backend/pkg/enums"
	pkgerrors "github.com/trayfoods/trayfoods-backend/pkg/errors"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// orderBinder is the slice of the order engine the dispatcher drives.
// Wired at startup to break the package cycle between the two services.
type orderBinder interface {
	GetByTrackID(ctx context.Context, trackID string) (*models.Order, error)
	BindCourier(ctx context.Context, trackID string, courierID, storeID uuid.UUID) error
	MarkStoreNoCourier(ctx context.Context, trackID string, storeID uuid.UUID) error
}

type notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}

// Service fans delivery invitations out to eligible couriers and arbitrates
// their acceptances.
type Service interface {
	HasEligibleCouriers(ctx context.Context, storeID uuid.UUID, shippingAddress string) (bool, error)
	Broadcast(ctx context.Context, order *models.Order, storeID uuid.UUID) error
	Accept(ctx context.Context, trackID string, courierID uuid.UUID) error
	Reject(ctx context.Context, trackID string, courierID uuid.UUID) error
	CancelOpenNotifications(ctx context.Context, orderID uuid.UUID) error
	ExpireStale(ctx context.Context) (int, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	binder   orderBinder
	notifier notifier
	logger   *logger.Logger
	cfg      config.DispatchConfig
	now      func() time.Time
}

// NewService wires the courier dispatcher. The order binder is attached
// separately with Bind because the order engine is constructed after the
// dispatcher.
func NewService(repo Repository, tx txRunner, notif notifier, cfg config.DispatchConfig, logg *logger.Logger) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("dispatch repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notif == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.MaxConcurrentDelivery <= 0 {
		return nil, fmt.Errorf("max concurrent deliveries must be positive")
	}
	return &Dispatcher{service{
		repo:     repo,
		tx:       tx,
		notifier: notif,
		logger:   logg,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}}, nil
}

// Dispatcher exposes Bind on top of Service for the startup wiring.
type Dispatcher struct {
	service
}

// Bind attaches the order engine. Must be called before any dispatch
// operation runs.
func (s *Dispatcher) Bind(binder orderBinder) {
	s.binder = binder
}

func (s *service) HasEligibleCouriers(ctx context.Context, storeID uuid.UUID, shippingAddress string) (bool, error) {
	store, err := s.repo.GetStore(ctx, storeID)
	if err != nil {
		return false, err
	}
	if store == nil {
		return false, pkgerrors.Newf(pkgerrors.CodeValidation, "store %s does not exist", storeID)
	}
	eligible, err := s.eligibleCouriers(ctx, store)
	if err != nil {
		return false, err
	}
	return len(eligible) > 0, nil
}

// eligibleCouriers filters the online fleet down to couriers who can take
// this store's delivery right now.
func (s *service) eligibleCouriers(ctx context.Context, store *models.Store) ([]models.Courier, error) {
	candidates, err := s.repo.ListCandidateCouriers(ctx)
	if err != nil {
		return nil, err
	}

	var eligible []models.Courier
	for _, courier := range candidates {
		if courier.IsOnDelivery(s.cfg.MaxConcurrentDelivery) {
			continue
		}
		if store.GenderPreference != nil && *store.GenderPreference != "" {
			if courier.Gender == nil || *courier.Gender != *store.GenderPreference {
				continue
			}
		}
		if store.Latitude != nil && store.Longitude != nil &&
			courier.Latitude != nil && courier.Longitude != nil {
			distance := haversineKM(*store.Latitude, *store.Longitude, *courier.Latitude, *courier.Longitude)
			if distance > s.cfg.MaxRadiusKM {
				continue
			}
		}
		eligible = append(eligible, courier)
	}
	return eligible, nil
}

// Broadcast invites every eligible courier to deliver one store's slice.
// When nobody can be reached the store is flipped to no-delivery-person.
func (s *service) Broadcast(ctx context.Context, order *models.Order, storeID uuid.UUID) error {
	store, err := s.repo.GetStore(ctx, storeID)
	if err != nil {
		return err
	}
	if store == nil {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "store %s does not exist", storeID)
	}

	eligible, err := s.eligibleCouriers(ctx, store)
	if err != nil {
		return err
	}

	logCtx := s.logger.WithTrackID(ctx, order.TrackID)
	reached := 0
	for _, courier := range eligible {
		notification := &models.DeliveryNotification{
			OrderID:   order.ID,
			StoreID:   storeID,
			CourierID: courier.ID,
			Status:    enums.DeliveryNotificationStatusPending,
		}
		if err := s.repo.CreateNotification(ctx, notification); err != nil {
			s.logger.Error(logCtx, "creating delivery notification failed", err)
			continue
		}
		err := s.notifier.Send(ctx, notify.Message{
			ProfileID: courier.ProfileID,
			Title:     "Delivery available",
			Body:      fmt.Sprintf("A delivery from %s is up for grabs", store.Name),
		})
		if err != nil {
			s.logger.Warn(s.logger.WithField(logCtx, "courier_id", courier.ID.String()), "courier could not be reached")
			continue
		}
		reached++
	}

	if reached == 0 {
		if err := s.binder.MarkStoreNoCourier(ctx, order.TrackID, storeID); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeNoEligibleCouriers, "no courier could be reached for this store")
	}
	return nil
}

// Accept lets a courier claim a store's delivery. The first acceptance
// wins; everyone later gets ALREADY_TAKEN.
func (s *service) Accept(ctx context.Context, trackID string, courierID uuid.UUID) error {
	order, err := s.binder.GetByTrackID(ctx, trackID)
	if err != nil {
		return err
	}

	var storeID uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		notification, err := repo.GetNotificationForUpdate(ctx, order.ID, courierID)
		if err != nil {
			return err
		}
		if notification == nil {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "courier was not invited to this delivery")
		}
		switch notification.Status {
		case enums.DeliveryNotificationStatusPending:
		case enums.DeliveryNotificationStatusAccepted:
			return pkgerrors.New(pkgerrors.CodeIllegalTransition, "delivery already accepted")
		case enums.DeliveryNotificationStatusExpired:
			return pkgerrors.New(pkgerrors.CodeAlreadyTaken, "the invitation has expired")
		default:
			return pkgerrors.Newf(pkgerrors.CodeIllegalTransition, "invitation is %s", notification.Status)
		}
		if s.now().Sub(notification.CreatedAt) > s.cfg.AcceptWindow+s.cfg.NotificationExpirySkew {
			notification.Status = enums.DeliveryNotificationStatusExpired
			if err := repo.SaveNotification(ctx, notification); err != nil {
				return err
			}
			return pkgerrors.New(pkgerrors.CodeAlreadyTaken, "the invitation has expired")
		}
		notification.Status = enums.DeliveryNotificationStatusProcessing
		storeID = notification.StoreID
		return repo.SaveNotification(ctx, notification)
	})
	if err != nil {
		return err
	}

	bindErr := s.binder.BindCourier(ctx, trackID, courierID, storeID)
	final := enums.DeliveryNotificationStatusAccepted
	if bindErr != nil {
		if pkgerrors.HasCode(bindErr, pkgerrors.CodeAlreadyTaken) {
			final = enums.DeliveryNotificationStatusExpired
		} else {
			final = enums.DeliveryNotificationStatusPending
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		notification, err := repo.GetNotificationForUpdate(ctx, order.ID, courierID)
		if err != nil {
			return err
		}
		if notification == nil {
			return nil
		}
		notification.Status = final
		if err := repo.SaveNotification(ctx, notification); err != nil {
			return err
		}
		if final == enums.DeliveryNotificationStatusAccepted {
			return repo.AdjustActiveDeliveries(ctx, courierID, 1)
		}
		return nil
	})
	if err != nil {
		s.logger.Error(s.logger.WithTrackID(ctx, trackID), "finalizing delivery notification failed", err)
	}
	return bindErr
}

func (s *service) Reject(ctx context.Context, trackID string, courierID uuid.UUID) error {
	order, err := s.binder.GetByTrackID(ctx, trackID)
	if err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		notification, err := repo.GetNotificationForUpdate(ctx, order.ID, courierID)
		if err != nil {
			return err
		}
		if notification == nil {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "courier was not invited to this delivery")
		}
		if notification.Status != enums.DeliveryNotificationStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeIllegalTransition, "invitation is %s", notification.Status)
		}
		notification.Status = enums.DeliveryNotificationStatusRejected
		return repo.SaveNotification(ctx, notification)
	})
}

// CancelOpenNotifications expires every open invitation for an order,
// used once a courier delivers or the order dies.
func (s *service) CancelOpenNotifications(ctx context.Context, orderID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		open, err := repo.ListOpenByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		for i := range open {
			open[i].Status = enums.DeliveryNotificationStatusExpired
			if err := repo.SaveNotification(ctx, &open[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ExpireStale expires invitations that outlived the accept window.
func (s *service) ExpireStale(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.AcceptWindow)
	stale, err := s.repo.ListOpenOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range stale {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			notification, err := repo.GetNotificationForUpdate(ctx, stale[i].OrderID, stale[i].CourierID)
			if err != nil {
				return err
			}
			if notification == nil || notification.Status == enums.DeliveryNotificationStatusAccepted ||
				notification.Status == enums.DeliveryNotificationStatusRejected {
				return nil
			}
			notification.Status = enums.DeliveryNotificationStatusExpired
			if err := repo.SaveNotification(ctx, notification); err != nil {
				return err
			}
			expired++
			return nil
		})
		if err != nil {
			return expired, err
		}
	}
	return expired, nil
}
