package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/trayfoods/trayfoods-backend/pkg/config"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
)

type notificationExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// DeliveryExpiryJobParams configure the invitation expiry sweep.
type DeliveryExpiryJobParams struct {
	Logger   *logger.Logger
	Dispatch notificationExpirer
	Config   config.DispatchConfig
}

// NewDeliveryExpiryJob builds the job that expires courier invitations
// nobody answered within the accept window.
func NewDeliveryExpiryJob(params DeliveryExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Dispatch == nil {
		return nil, fmt.Errorf("dispatch service required")
	}
	if params.Config.AcceptWindow <= 0 {
		return nil, fmt.Errorf("accept window must be positive")
	}
	return &deliveryExpiryJob{
		logg:     params.Logger,
		dispatch: params.Dispatch,
		interval: params.Config.AcceptWindow / 3,
	}, nil
}

type deliveryExpiryJob struct {
	logg     *logger.Logger
	dispatch notificationExpirer
	interval time.Duration
}

func (j *deliveryExpiryJob) Name() string            { return "delivery-expiry" }
func (j *deliveryExpiryJob) Interval() time.Duration { return j.interval }

func (j *deliveryExpiryJob) Run(ctx context.Context) error {
	expired, err := j.dispatch.ExpireStale(ctx)
	if err != nil {
		return fmt.Errorf("delivery expiry sweep: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "notifications", expired), "delivery expiry sweep complete")
	return nil
}
