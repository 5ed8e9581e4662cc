package email

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"brasul/fretes/internal/config"
)

// Sender defines the interface for sending emails.
// The rawMessage parameter should contain the full email message, including headers and body, properly formatted.
type Sender interface {
	Send(ctx context.Context, to []string, subject string, rawMessage []byte) error
}

// SMTPSender implements the Sender interface using Go's net/smtp package.
type SMTPSender struct {
	from   string
	auth   smtp.Auth
	addr   string
	logger *zap.Logger
}

// NewSMTPSender creates a new SMTPSender. Without an SMTP host it returns a
// LoggingSender.
func NewSMTPSender(cfg *config.Config, logger *zap.Logger) Sender {
	if cfg.SmtpHost == "" {
		logger.Info("SMTP host not configured, using logging email sender")
		return &LoggingSender{from: cfg.SmtpFromAddress, logger: logger}
	}

	auth := smtp.PlainAuth(
		"", // identity
		cfg.SmtpUsername,
		cfg.SmtpPassword,
		cfg.SmtpHost,
	)
	addr := fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort)

	return &SMTPSender{
		from:   cfg.SmtpFromAddress,
		auth:   auth,
		addr:   addr,
		logger: logger,
	}
}

// Send sends an email using SMTP.
// The rawMessage is expected to be the complete email content.
func (s *SMTPSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if err := smtp.SendMail(s.addr, s.auth, s.from, to, rawMessage); err != nil {
		s.logger.Error("failed to send email via SMTP", zap.Strings("to", to), zap.Error(err))
		return fmt.Errorf("smtp error: %w", err)
	}
	s.logger.Info("email sent via SMTP", zap.Strings("to", to), zap.String("subject", subject))
	return nil
}

// LoggingSender only logs the email.
// Useful for development or when SMTP isn't configured.
type LoggingSender struct {
	from   string
	logger *zap.Logger
}

func NewLoggingSender(from string, logger *zap.Logger) *LoggingSender {
	return &LoggingSender{from: from, logger: logger}
}

func (s *LoggingSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	s.logger.Info("email (logged, not sent)",
		zap.Strings("to", to),
		zap.String("from", s.from),
		zap.String("subject", subject),
		zap.ByteString("raw", rawMessage))
	return nil
}
