package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/trayfoods/trayfoods-backend/api/responses"
	pkgerrors "github.com/trayfoods/trayfoods-backend/pkg/errors"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
)

// The edge gateway authenticates callers and forwards the resolved
// profile in this header. The engine only authorizes against it.
const actorHeader = "X-Profile-Id"

type actorKey struct{}

// Actor requires a forwarded profile id and stores it on the context.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(actorHeader)
			if raw == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing"))
				return
			}
			profileID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity malformed"))
				return
			}
			ctx := context.WithValue(r.Context(), actorKey{}, profileID)
			if logg != nil {
				ctx = logg.WithField(ctx, "profile_id", profileID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext returns the authenticated profile id.
func ActorFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorKey{}).(uuid.UUID)
	return id, ok
}
