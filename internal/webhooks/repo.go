package webhooks

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trayfoods/trayfoods-backend/pkg/db/models"
)

// Repository records processed webhook deliveries.
type Repository interface {
	// Seen reports whether a delivery with this dedupe triple was
	// already fully processed.
	Seen(ctx context.Context, reference, kind, terminalState string) (bool, error)
	// RecordDelivery inserts the dedupe row and reports whether this
	// delivery is the first for its (reference, kind, state) triple.
	RecordDelivery(ctx context.Context, event *models.WebhookEvent) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a webhook repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Seen(ctx context.Context, reference, kind, terminalState string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("reference = ? AND kind = ? AND terminal_state = ?", reference, kind, terminalState).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) RecordDelivery(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "reference"}, {Name: "kind"}, {Name: "terminal_state"},
			},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
