package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trayfoods/trayfoods-backend/pkg/db/models"
)

type gormResolver struct {
	db *gorm.DB
}

// NewResolver returns a RecipientResolver backed by the profiles table.
func NewResolver(db *gorm.DB) (RecipientResolver, error) {
	if db == nil {
		return nil, fmt.Errorf("database required")
	}
	return &gormResolver{db: db}, nil
}

func (r *gormResolver) Resolve(ctx context.Context, profileID uuid.UUID) (*Recipient, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Where("id = ?", profileID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	recipient := &Recipient{
		DeviceTokens: profile.DeviceTokens,
		Email:        profile.Email,
	}
	if profile.Phone != nil {
		recipient.Phone = *profile.Phone
	}
	return recipient, nil
}
