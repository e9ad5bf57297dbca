package webhooks

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/trayfoods/trayfoods-backend/internal/orders"
	"github.com/trayfoods/trayfoods-backend/pkg/db/models"
	"github.com/trayfoods/trayfoods-backend/pkg/logger"
	"github.com/trayfoods/trayfoods-backend/pkg/money"
	"github.com/trayfoods/trayfoods-backend/pkg/redis"
)

const (
	idempotencyScope = "webhook"
	inflightTTL      = 15 * time.Minute
)

type ordersService interface {
	HandleChargeSuccess(ctx context.Context, event orders.ChargeSuccessEvent) error
	HandleRefundProcessed(ctx context.Context, reference string, amount money.Money) error
	HandleRefundFailed(ctx context.Context, reference string, amount money.Money) error
}

type ledgerService interface {
	MarkTransferSuccess(ctx context.Context, externalRef, gatewayID string, amount money.Money) error
	MarkTransferFailed(ctx context.Context, externalRef string) error
	MarkTransferReversed(ctx context.Context, externalRef string) error
}

type supportNotifier interface {
	SendToSupport(ctx context.Context, subject, body string) error
}

type dedupeStore interface {
	Seen(ctx context.Context, reference, kind, terminalState string) (bool, error)
	RecordDelivery(ctx context.Context, event *models.WebhookEvent) (bool, error)
}

// Processor routes verified gateway events into the engine. Every event
// is processed at most once per terminal state.
type Processor struct {
	dedupe   dedupeStore
	idem     redis.IdempotencyStore
	orders   ordersService
	ledger   ledgerService
	support  supportNotifier
	logger   *logger.Logger
	currency string
}

// NewProcessor wires the webhook router.
func NewProcessor(
	dedupe dedupeStore,
	idem redis.IdempotencyStore,
	orders ordersService,
	ledgerSvc ledgerService,
	support supportNotifier,
	currency string,
	logg *logger.Logger,
) (*Processor, error) {
	if dedupe == nil {
		return nil, fmt.Errorf("dedupe store required")
	}
	if orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if support == nil {
		return nil, fmt.Errorf("support notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Processor{
		dedupe:   dedupe,
		idem:     idem,
		orders:   orders,
		ledger:   ledgerSvc,
		support:  support,
		logger:   logg,
		currency: currency,
	}, nil
}

// Process handles one verified event. A nil return acknowledges the
// delivery; an error asks the gateway to retry.
func (p *Processor) Process(ctx context.Context, event *Event) error {
	reference := event.Reference()
	state := terminalState(event.Kind)
	logCtx := p.logger.WithEventKind(p.logger.WithField(ctx, "reference", reference), event.Kind)

	// Disputes carry an opaque payload and sometimes no reference at
	// all, so they skip the reference and dedupe gates entirely.
	if event.IsDispute() {
		if err := p.route(ctx, event); err != nil {
			p.logger.Error(logCtx, "forwarding dispute to support failed", err)
			return err
		}
		p.logger.Info(logCtx, "dispute forwarded to support")
		return nil
	}

	if reference == "" {
		p.logger.Warn(logCtx, "webhook event carries no reference, dropping")
		return nil
	}

	seen, err := p.dedupe.Seen(ctx, reference, event.Kind, state)
	if err != nil {
		return err
	}
	if seen {
		p.logger.Info(logCtx, "webhook re-delivery ignored")
		return nil
	}

	marker := ""
	if p.idem != nil {
		marker = p.idem.IdempotencyKey(idempotencyScope, fmt.Sprintf("%s:%s:%s", reference, event.Kind, state))
		acquired, err := p.idem.SetNX(ctx, marker, "1", inflightTTL)
		if err != nil {
			// Redis being down degrades to database-only dedupe.
			p.logger.Warn(logCtx, "idempotency marker unavailable, relying on database dedupe")
			marker = ""
		} else if !acquired {
			p.logger.Info(logCtx, "webhook already in flight, ignored")
			return nil
		}
	}

	if err := p.route(ctx, event); err != nil {
		if marker != "" {
			if delErr := p.idem.Del(ctx, marker); delErr != nil {
				p.logger.Warn(logCtx, "releasing idempotency marker failed")
			}
		}
		p.logger.Error(logCtx, "webhook processing failed", err)
		return err
	}

	if _, err := p.dedupe.RecordDelivery(ctx, &models.WebhookEvent{
		Reference:     reference,
		Kind:          event.Kind,
		TerminalState: state,
	}); err != nil {
		p.logger.Error(logCtx, "recording webhook delivery failed", err)
	}
	p.logger.Info(logCtx, "webhook processed")
	return nil
}

func (p *Processor) route(ctx context.Context, event *Event) error {
	if event.IsDispute() {
		return p.support.SendToSupport(ctx,
			fmt.Sprintf("Dispute event %s", event.Kind),
			fmt.Sprintf("Gateway raised %s for reference %s, status %q", event.Kind, event.Reference(), event.Data.Status))
	}

	amount := money.FromMinorUnits(event.Data.AmountMinor, p.currency)
	switch event.Kind {
	case EventChargeSuccess:
		return p.orders.HandleChargeSuccess(ctx, orders.ChargeSuccessEvent{
			Reference:   event.Data.Reference,
			AmountMinor: event.Data.AmountMinor,
			Channel:     event.Data.Channel,
		})
	case EventTransferSuccess:
		// the gateway's own transaction id, not the transfer code
		gatewayID := strconv.FormatInt(event.Data.ID, 10)
		return p.ledger.MarkTransferSuccess(ctx, event.Data.Reference, gatewayID, amount)
	case EventTransferFailed:
		return p.ledger.MarkTransferFailed(ctx, event.Data.Reference)
	case EventTransferReversed:
		return p.ledger.MarkTransferReversed(ctx, event.Data.Reference)
	case EventRefundProcessed:
		return p.orders.HandleRefundProcessed(ctx, event.Reference(), amount)
	case EventRefundFailed:
		return p.orders.HandleRefundFailed(ctx, event.Reference(), amount)
	case EventRefundPending, EventRefundProcessing:
		// intermediate refund states carry no transition
		return nil
	default:
		p.logger.Warn(p.logger.WithEventKind(ctx, event.Kind), "unhandled webhook kind dropped")
		return nil
	}
}

// terminalState is the dedupe discriminator: the lifecycle word at the
// end of the event kind.
func terminalState(kind string) string {
	if idx := strings.LastIndex(kind, "."); idx >= 0 {
		return kind[idx+1:]
	}
	return kind
}
