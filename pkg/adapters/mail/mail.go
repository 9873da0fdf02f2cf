// Package mail delivers registration verification codes.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

// SMTP implements ports.Mailer with gomail.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
	name   string
}

// NewSMTP creates a mailer that dials host:port for every message.
func NewSMTP(host string, port int, username, password, from, senderName string) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		name:   senderName,
	}
}

func verificationMessage(from, name, to, code string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", from, name)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Your library bot verification code")
	m.SetBody("text/plain", fmt.Sprintf("Your verification code is %s.\n\nSend it to the bot to finish registration.", code))
	m.AddAlternative("text/html", fmt.Sprintf(`<p>Your verification code is:</p><h2 style="letter-spacing: 4px;">%s</h2><p>Send it to the bot to finish registration.</p>`, code))
	return m
}

func (s *SMTP) SendVerificationCode(ctx context.Context, email, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(verificationMessage(s.from, s.name, email, code)); err != nil {
		return fmt.Errorf("send verification code to %s: %w", email, err)
	}
	return nil
}

// Log implements ports.Mailer by logging the code. Used when SMTP is not configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) SendVerificationCode(ctx context.Context, email, code string) error {
	l.logger.Warn("SMTP not configured; verification code logged instead", "email", email, "code", code)
	return nil
}
