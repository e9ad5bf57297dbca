package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent records a processed gateway callback. The unique index on
// (reference, kind, terminal_state) is what makes re-delivery a no-op.
type WebhookEvent struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Reference     string    `gorm:"column:reference;not null;uniqueIndex:idx_webhook_events_dedupe"`
	Kind          string    `gorm:"column:kind;not null;uniqueIndex:idx_webhook_events_dedupe"`
	TerminalState string    `gorm:"column:terminal_state;not null;uniqueIndex:idx_webhook_events_dedupe"`
	ReceivedAt    time.Time `gorm:"column:received_at;autoCreateTime"`
}
