package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/trayfoods/trayfoods-backend/pkg/config"
)

// FCMSender delivers push notifications through Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender initialises the Firebase Admin SDK. With an empty
// credentials file it falls back to application-default credentials.
func NewFCMSender(ctx context.Context, cfg config.NotifyConfig) (*FCMSender, error) {
	opts := []option.ClientOption{}
	if cfg.FCMCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FCMCredentialsFile))
	}
	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase messaging client: %w", err)
	}
	return &FCMSender{client: client}, nil
}

// SendPush fans the message out to every device token. One successful
// delivery is enough.
func (s *FCMSender) SendPush(ctx context.Context, tokens []string, title, body string) error {
	if len(tokens) == 0 {
		return fmt.Errorf("no device tokens")
	}
	var lastErr error
	delivered := false
	for _, token := range tokens {
		_, err := s.client.Send(ctx, &messaging.Message{
			Token: token,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Android: &messaging.AndroidConfig{Priority: "high"},
		})
		if err != nil {
			lastErr = err
			continue
		}
		delivered = true
	}
	if !delivered {
		return fmt.Errorf("push delivery failed for all tokens: %w", lastErr)
	}
	return nil
}

// HTTPSMSSender posts to a JSON SMS gateway.
type HTTPSMSSender struct {
	baseURL string
	apiKey  string
	sender  string
	httpc   *http.Client
}

// NewHTTPSMSSender builds the SMS channel. Returns an error when the
// gateway is not configured so callers can leave the channel out.
func NewHTTPSMSSender(cfg config.NotifyConfig) (*HTTPSMSSender, error) {
	if cfg.SMSBaseURL == "" || cfg.SMSAPIKey == "" {
		return nil, fmt.Errorf("sms gateway not configured")
	}
	return &HTTPSMSSender{
		baseURL: strings.TrimRight(cfg.SMSBaseURL, "/"),
		apiKey:  cfg.SMSAPIKey,
		sender:  cfg.SMSSender,
		httpc:   &http.Client{},
	}, nil
}

func (s *HTTPSMSSender) SendSMS(ctx context.Context, phone, body string) error {
	payload, err := json.Marshal(map[string]string{
		"to":      phone,
		"from":    s.sender,
		"message": body,
	})
	if err != nil {
		return fmt.Errorf("encoding sms payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/sms/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("calling sms gateway: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}
	return nil
}

// SMTPSender delivers plain-text email over SMTP.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPSender builds the email channel. Returns an error when SMTP is
// not configured so callers can leave the channel out.
func NewSMTPSender(cfg config.NotifyConfig) (*SMTPSender, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("smtp not configured")
	}
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		auth: auth,
		from: cfg.EmailFrom,
	}, nil
}

func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, textContent string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.from, to, subject, textContent)
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}
