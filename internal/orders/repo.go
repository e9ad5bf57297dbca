package orders

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

// Repository manages order persistence plus the catalog reads the
// composer and state machine need.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) error
	GetByTrackID(ctx context.Context, trackID string) (*models.Order, error)
	GetByTrackIDForUpdate(ctx context.Context, trackID string) (*models.Order, error)
	Save(ctx context.Context, order *models.Order) error
	ListStalled(ctx context.Context, statuses []enums.OrderStatus, updatedBefore time.Time) ([]models.Order, error)

	GetStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error)
	GetCourier(ctx context.Context, courierID uuid.UUID) (*models.Courier, error)
	GetProfile(ctx context.Context, profileID uuid.UUID) (*models.Profile, error)
	GetItemBySlug(ctx context.Context, slug string) (*models.Item, error)
	AdjustItemQuantity(ctx context.Context, slug string, delta int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) GetByTrackID(ctx context.Context, trackID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("track_id = ? OR previous_track_id = ?", trackID, trackID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetByTrackIDForUpdate(ctx context.Context, trackID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("track_id = ? OR previous_track_id = ?", trackID, trackID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Save(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *repository) ListStalled(ctx context.Context, statuses []enums.OrderStatus, updatedBefore time.Time) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", statuses, updatedBefore).
		Order("updated_at ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
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

func (r *repository) GetProfile(ctx context.Context, profileID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).First(&profile, "id = ?", profileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) GetItemBySlug(ctx context.Context, slug string) (*models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).First(&item, "slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) AdjustItemQuantity(ctx context.Context, slug string, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("slug = ?", slug).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", delta)).Error
}
