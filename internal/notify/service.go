package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/trayfoods/trayfoods-backend/pkg/logger"
)

// Message is one user-facing notification. The service resolves the
// profile's channels itself; callers only name the recipient.
type Message struct {
	ProfileID uuid.UUID
	Title     string
	Body      string
}

// Recipient carries the delivery endpoints for one profile.
type Recipient struct {
	DeviceTokens []string
	Phone        string
	Email        string
}

// PushSender delivers to a device token list.
type PushSender interface {
	SendPush(ctx context.Context, tokens []string, title, body string) error
}

// SMSSender delivers to an E.164 phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, body string) error
}

// EmailSender delivers a plain-text email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, textContent string) error
}

// RecipientResolver looks up a profile's delivery endpoints.
type RecipientResolver interface {
	Resolve(ctx context.Context, profileID uuid.UUID) (*Recipient, error)
}

// Service fans a message out over push, then SMS, then email. The first
// channel that succeeds stops the chain.
type Service interface {
	Send(ctx context.Context, msg Message) error
	SendToSupport(ctx context.Context, subject, body string) error
}

type service struct {
	resolver     RecipientResolver
	push         PushSender
	sms          SMSSender
	email        EmailSender
	supportEmail string
	logger       *logger.Logger
}

// NewService wires the notifier with its channel providers. Any provider
// may be nil; a nil provider is skipped in the fallback chain.
func NewService(resolver RecipientResolver, push PushSender, sms SMSSender, email EmailSender, supportEmail string, logg *logger.Logger) (Service, error) {
	if resolver == nil {
		return nil, fmt.Errorf("recipient resolver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		resolver:     resolver,
		push:         push,
		sms:          sms,
		email:        email,
		supportEmail: supportEmail,
		logger:       logg,
	}, nil
}

func (s *service) Send(ctx context.Context, msg Message) error {
	recipient, err := s.resolver.Resolve(ctx, msg.ProfileID)
	if err != nil {
		return fmt.Errorf("resolving recipient: %w", err)
	}
	if recipient == nil {
		return fmt.Errorf("profile %s has no notification endpoints", msg.ProfileID)
	}

	var lastErr error
	if s.push != nil && len(recipient.DeviceTokens) > 0 {
		if err := s.push.SendPush(ctx, recipient.DeviceTokens, msg.Title, msg.Body); err == nil {
			return nil
		} else {
			lastErr = err
			s.logger.Warn(s.logger.WithField(ctx, "channel", "push"), "push delivery failed, falling back")
		}
	}
	if s.sms != nil && recipient.Phone != "" {
		if err := s.sms.SendSMS(ctx, recipient.Phone, msg.Body); err == nil {
			return nil
		} else {
			lastErr = err
			s.logger.Warn(s.logger.WithField(ctx, "channel", "sms"), "sms delivery failed, falling back")
		}
	}
	if s.email != nil && recipient.Email != "" {
		if err := s.email.SendEmail(ctx, recipient.Email, msg.Title, msg.Body); err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr == nil {
		return fmt.Errorf("no delivery channel available for profile %s", msg.ProfileID)
	}
	return fmt.Errorf("all delivery channels failed: %w", lastErr)
}

func (s *service) SendToSupport(ctx context.Context, subject, body string) error {
	if s.email == nil || s.supportEmail == "" {
		s.logger.Warn(ctx, "support notification dropped, no support email configured")
		return nil
	}
	return s.email.SendEmail(ctx, s.supportEmail, subject, body)
}
