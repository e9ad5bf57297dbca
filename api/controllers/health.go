package controllers

import (
	"context"
	"net/http"

	"github.com/trayfoods/trayfoods-backend/api/responses"
	"github.com/trayfoods/trayfoods-backend/pkg/config"
	pkgerrors "github.com/trayfoods/trayfoods-backend/pkg/errors"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive reports process liveness.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady checks the backing stores the engine cannot run without.
func HealthReady(logg *logger.Logger, db, redis pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		checks := map[string]string{}

		if db == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "database not wired"))
			return
		}
		if err := db.Ping(ctx); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
			return
		}
		checks["database"] = "ok"

		// Redis degrades gracefully elsewhere, so a miss only flags the check.
		if redis != nil {
			if err := redis.Ping(ctx); err != nil {
				checks["redis"] = "unreachable"
			} else {
				checks["redis"] = "ok"
			}
		}

		responses.WriteSuccess(w, checks)
	}
}
