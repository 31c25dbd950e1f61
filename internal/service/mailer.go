package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-evote-api/internal/observability"
)

// Mail kinds used for metrics and logging.
const (
	MailKindApproval  = "approval"
	MailKindRejection = "rejection"
)

// MailMessage is a transactional e-mail to a voter.
type MailMessage struct {
	Kind    string
	To      string
	Name    string
	Subject string
	Body    string
}

// Mailer delivers transactional e-mails.
type Mailer interface {
	Send(ctx context.Context, message MailMessage) error
}

// LogMailer is a basic provider that logs outgoing e-mails instead of sending them.
type LogMailer struct {
	from   string
	logger zerolog.Logger
}

// NewLogMailer constructs a logging mailer.
func NewLogMailer(from string, logger zerolog.Logger) *LogMailer {
	return &LogMailer{from: from, logger: logger.With().Str("component", "mailer").Logger()}
}

// Send logs the message and returns nil to indicate success.
func (m *LogMailer) Send(ctx context.Context, message MailMessage) error {
	m.logger.Info().
		Str("kind", message.Kind).
		Str("from", m.from).
		Str("subject", message.Subject).
		Msg("voter e-mail queued")
	return nil
}

// deliverMail sends message. A failure is logged and returned as a notice for the admin.
func deliverMail(ctx context.Context, mailer Mailer, logger zerolog.Logger, message MailMessage) []string {
	if mailer == nil {
		return nil
	}

	if err := mailer.Send(ctx, message); err != nil {
		observability.MailDeliveries().WithLabelValues(message.Kind, "failed").Inc()
		logger.Warn().Err(err).Str("kind", message.Kind).Msg("failed to send voter e-mail")
		return []string{fmt.Sprintf("The %s e-mail could not be sent. The change was saved.", message.Kind)}
	}

	observability.MailDeliveries().WithLabelValues(message.Kind, "sent").Inc()
	return nil
}

func approvalMail(name, email, verifyURL string, expiration string) MailMessage {
	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", name)
	body.WriteString("Your voter registration has been approved.\n")
	fmt.Fprintf(&body, "Confirm your e-mail address within 24 hours: %s\n\n", verifyURL)
	fmt.Fprintf(&body, "Your voter access is valid until %s.\n", expiration)

	return MailMessage{
		Kind:    MailKindApproval,
		To:      email,
		Name:    name,
		Subject: "Your voter registration was approved",
		Body:    body.String(),
	}
}

func rejectionMail(name, email, reason string) MailMessage {
	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", name)
	body.WriteString("Your voter registration could not be approved.\n")
	if reason != "" {
		fmt.Fprintf(&body, "Reason: %s\n", reason)
	}
	body.WriteString("Please contact the election committee if you believe this is a mistake.\n")

	return MailMessage{
		Kind:    MailKindRejection,
		To:      email,
		Name:    name,
		Subject: "Your voter registration was not approved",
		Body:    body.String(),
	}
}
