package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trayfoods/trayfoods-backend/pkg/db/models"
	"github.com/trayfoods/trayfoods-backend/pkg/enums"
)

var openStatuses = []enums.DeliveryNotificationStatus{
	enums.DeliveryNotificationStatusPending,
	enums.DeliveryNotificationStatusProcessing,
}

// Repository manages delivery notifications and the courier reads the
// dispatcher needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateNotification(ctx context.Context, notification *models.DeliveryNotification) error
	GetNotification(ctx context.Context, orderID, courierID uuid.UUID) (*models.DeliveryNotification, error)
	GetNotificationForUpdate(ctx context.Context, orderID, courierID uuid.UUID) (*models.DeliveryNotification, error)
	SaveNotification(ctx context.Context, notification *models.DeliveryNotification) error
	ListOpenByOrder(ctx context.Context, orderID uuid.UUID) ([]models.DeliveryNotification, error)
	ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]models.DeliveryNotification, error)

	ListCandidateCouriers(ctx context.Context) ([]models.Courier, error)
	GetStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error)
	GetCourier(ctx context.Context, courierID uuid.UUID) (*models.Courier, error)
	AdjustActiveDeliveries(ctx context.Context, courierID uuid.UUID, delta int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a dispatch repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateNotification inserts the invitation, silently skipping a courier
// who was already invited to this order.
func (r *repository) CreateNotification(ctx context.Context, notification *models.DeliveryNotification) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "courier_id"}},
			DoNothing: true,
		}).
		Create(notification).Error
}

func (r *repository) GetNotification(ctx context.Context, orderID, courierID uuid.UUID) (*models.DeliveryNotification, error) {
	var notification models.DeliveryNotification
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND courier_id = ?", orderID, courierID).
		First(&notification).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *repository) GetNotificationForUpdate(ctx context.Context, orderID, courierID uuid.UUID) (*models.DeliveryNotification, error) {
	var notification models.DeliveryNotification
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND courier_id = ?", orderID, courierID).
		First(&notification).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *repository) SaveNotification(ctx context.Context, notification *models.DeliveryNotification) error {
	return r.db.WithContext(ctx).Save(notification).Error
}

func (r *repository) ListOpenByOrder(ctx context.Context, orderID uuid.UUID) ([]models.DeliveryNotification, error) {
	var notifications []models.DeliveryNotification
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status IN ?", orderID, openStatuses).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *repository) ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]models.DeliveryNotification, error) {
	var notifications []models.DeliveryNotification
	err := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?", openStatuses, cutoff).
		Order("created_at ASC").
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *repository) ListCandidateCouriers(ctx context.Context) ([]models.Courier, error) {
	var couriers []models.Courier
	err := r.db.WithContext(ctx).
		Where("approved = ? AND availability = ?", true, enums.AvailabilityOnline).
		Find(&couriers).Error
	if err != nil {
		return nil, err
	}
	return couriers, nil
}

func (r *repository) GetStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error) {
	var store models.Store
	err := r.db.WithContext(ctx).First(&store, "id = ?", storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *repository) GetCourier(ctx context.Context, courierID uuid.UUID) (*models.Courier, error) {
	var courier models.Courier
	err := r.db.WithContext(ctx).First(&courier, "id = ?", courierID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &courier, nil
}

func (r *repository) AdjustActiveDeliveries(ctx context.Context, courierID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.Courier{}).
		Where("id = ?", courierID).
		UpdateColumn("active_deliveries", gorm.Expr("GREATEST(active_deliveries + ?, 0)", delta)).Error
}
