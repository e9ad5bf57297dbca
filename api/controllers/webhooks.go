package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/trayfoods/trayfoods-backend/api/responses"
	"github.com/trayfoods/trayfoods-backend/internal/webhooks"
	pkgerrors "github.com/trayfoods/trayfoods-backend/pkg/errors"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
	"github.com/trayfoods/trayfoods-backend/pkg/security"
)

const paystackSignatureHeader = "x-paystack-signature"

type webhookProcessor interface {
	Process(ctx context.Context, event *webhooks.Event) error
}

type signingSecretSource interface {
	SigningSecret() string
}

// PaystackWebhook verifies the HMAC signature, parses the event, and hands
// it to the processor. Retryable failures return 5xx so the gateway
// re-delivers; everything else acknowledges with 200.
func PaystackWebhook(processor webhookProcessor, secrets signingSecretSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if processor == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook processor unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read webhook body"))
			return
		}

		signature := r.Header.Get(paystackSignatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature missing"))
			return
		}
		if !security.VerifySignature(secrets.SigningSecret(), body, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature invalid"))
			return
		}

		event, err := webhooks.ParseEvent(body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload"))
			return
		}

		if err := processor.Process(ctx, event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
