// Package notification renders and delivers the transactional emails sent
// to patients and doctors. Delivery is best effort: failures are logged and
// counted, never returned to the request that triggered them.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/platform/telemetry"
)

// Template ids used by the domain services.
const (
	TemplateBookingCreated   = "booking-created"
	TemplatePaymentConfirmed = "payment-confirmed"
	TemplateStatusChanged    = "appointment-status-changed"
	TemplateDoctorWelcome    = "doctor-welcome"
)

// Attachment is a file sent alongside a message.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is a rendered email.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// EmailSender delivers a rendered message.
type EmailSender interface {
	SendEmail(ctx context.Context, msg Message) error
}

// Template defines a reusable notification template.
type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine renders {{key}} placeholders.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]Template)}
	for _, t := range []Template{
		{
			ID:      TemplateBookingCreated,
			Subject: "Appointment request received",
			Body:    "Dear {{patient_name}}, your appointment with Dr. {{doctor_name}} on {{date}} at {{time_slot}} has been requested. Complete the payment to confirm it: {{payment_link}}",
		},
		{
			ID:      TemplatePaymentConfirmed,
			Subject: "Payment received for your appointment",
			Body:    "Dear {{patient_name}}, we received {{amount}} for your appointment with Dr. {{doctor_name}} on {{date}} at {{time_slot}}. Your appointment is confirmed. The receipt is attached.",
		},
		{
			ID:      TemplateStatusChanged,
			Subject: "Your appointment is now {{status}}",
			Body:    "Dear {{patient_name}}, your appointment with Dr. {{doctor_name}} on {{date}} at {{time_slot}} is now {{status}}.",
		},
		{
			ID:      TemplateDoctorWelcome,
			Subject: "Your MedBook doctor account",
			Body:    "Dear Dr. {{doctor_name}}, an administrator created your account. Sign in at {{login_link}} with this email address.",
		},
	} {
		e.templates[t.ID] = t
	}
	return e
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = t
}

// Render performs {{key}} replacement. Placeholders missing from data are
// left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject, body = t.Subject, t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// Notifier renders a template and hands the message to the sender.
type Notifier struct {
	sender    EmailSender
	templates *TemplateEngine
	metrics   *telemetry.Metrics
	logger    zerolog.Logger
}

func NewNotifier(sender EmailSender, templates *TemplateEngine, metrics *telemetry.Metrics, logger zerolog.Logger) *Notifier {
	return &Notifier{
		sender:    sender,
		templates: templates,
		metrics:   metrics,
		logger:    logger,
	}
}

// Notify sends templateID to recipient. Errors are logged, not returned.
func (n *Notifier) Notify(ctx context.Context, templateID, recipient string, data map[string]string, attachments ...Attachment) {
	err := n.send(ctx, templateID, recipient, data, attachments)
	n.metrics.RecordNotification(templateID, err)
	if err != nil {
		n.logger.Error().Err(err).
			Str("template", templateID).
			Str("recipient", recipient).
			Msg("notification failed")
		return
	}
	n.logger.Debug().Str("template", templateID).Str("recipient", recipient).Msg("notification sent")
}

func (n *Notifier) send(ctx context.Context, templateID, recipient string, data map[string]string, attachments []Attachment) error {
	if recipient == "" {
		return fmt.Errorf("recipient is required")
	}
	subject, body, err := n.templates.Render(templateID, data)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}
	return n.sender.SendEmail(ctx, Message{
		To:          recipient,
		Subject:     subject,
		Body:        body,
		Attachments: attachments,
	})
}
