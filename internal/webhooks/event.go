package webhooks

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event kinds the processor routes. Anything else is acknowledged and
// dropped.
const (
	EventChargeSuccess    = "charge.success"
	EventTransferSuccess  = "transfer.success"
	EventTransferFailed   = "transfer.failed"
	EventTransferReversed = "transfer.reversed"
	EventRefundProcessed  = "refund.processed"
	EventRefundFailed     = "refund.failed"
	EventRefundPending    = "refund.pending"
	EventRefundProcessing = "refund.processing"

	disputePrefix = "charge.dispute."
)

// Event is one parsed gateway callback.
type Event struct {
	Kind string
	Data EventData
	Raw  json.RawMessage
}

// EventData carries the payload fields the engine consumes. Paystack
// amounts arrive in minor units.
type EventData struct {
	ID                   int64  `json:"id"`
	Reference            string `json:"reference"`
	TransactionReference string `json:"transaction_reference"`
	TransferCode         string `json:"transfer_code"`
	AmountMinor          int64  `json:"amount"`
	Channel              string `json:"channel"`
	Status               string `json:"status"`
	Reason               string `json:"reason"`
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ParseEvent decodes a raw webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding webhook envelope: %w", err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("webhook envelope has no event kind")
	}
	event := &Event{Kind: env.Event, Raw: env.Data}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &event.Data); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", env.Event, err)
		}
	}
	return event, nil
}

// Reference is the identifier the event should be deduplicated and routed
// by. Refund events reference the original charge.
func (e *Event) Reference() string {
	if strings.HasPrefix(e.Kind, "refund.") && e.Data.TransactionReference != "" {
		return e.Data.TransactionReference
	}
	return e.Data.Reference
}

// IsDispute reports whether the event belongs to the dispute family.
func (e *Event) IsDispute() bool {
	return strings.HasPrefix(e.Kind, disputePrefix)
}
