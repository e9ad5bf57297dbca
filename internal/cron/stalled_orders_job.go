package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/trayfoods/trayfoods-backend/pkg/config"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
)

type stalledSweeper interface {
	SweepStalled(ctx context.Context, updatedBefore time.Time) (int, error)
}

// StalledOrdersJobParams configure the stalled delivery sweep.
type StalledOrdersJobParams struct {
	Logger *logger.Logger
	Orders stalledSweeper
	Config config.DispatchConfig
}

// NewStalledOrdersJob builds the job that flips delivery stores no courier
// ever picked up within the stall window.
func NewStalledOrdersJob(params StalledOrdersJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Config.StalledOrderWindow <= 0 {
		return nil, fmt.Errorf("stalled order window must be positive")
	}
	if params.Config.StalledSweepInterval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive")
	}
	return &stalledOrdersJob{
		logg:     params.Logger,
		orders:   params.Orders,
		window:   params.Config.StalledOrderWindow,
		interval: params.Config.StalledSweepInterval,
		now:      time.Now,
	}, nil
}

type stalledOrdersJob struct {
	logg     *logger.Logger
	orders   stalledSweeper
	window   time.Duration
	interval time.Duration
	now      func() time.Time
}

func (j *stalledOrdersJob) Name() string            { return "stalled-orders" }
func (j *stalledOrdersJob) Interval() time.Duration { return j.interval }

func (j *stalledOrdersJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)
	flipped, err := j.orders.SweepStalled(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("stalled order sweep: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "stores", flipped), "stalled order sweep complete")
	return nil
}
