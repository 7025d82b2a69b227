// Package mail sends transactional notifications over SMTP.
//
// The sender degrades gracefully: when SMTP credentials are not configured
// every send becomes a logged no-op, so the account workflow keeps working
// in development environments without a mail server.
package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/skillsenselab/tubescribe/internal/config"
	"github.com/skillsenselab/tubescribe/internal/logger"
)

// deliverFunc dials the SMTP server and sends one message. Swapped out in
// tests.
type deliverFunc func(ctx context.Context, msg *gomail.Msg) error

// Sender composes and delivers the service's notification emails.
type Sender struct {
	cfg     config.SMTPConfig
	enabled bool
	deliver deliverFunc
	log     *logger.Logger
}

// New builds a Sender from SMTP configuration. When username or password
// is empty the sender is disabled and Send calls succeed without doing
// anything.
func New(cfg config.SMTPConfig, log *logger.Logger) (*Sender, error) {
	s := &Sender{
		cfg:     cfg,
		enabled: cfg.Enabled(),
		log:     log.WithComponent("mail"),
	}
	if !s.enabled {
		s.log.Warn("smtp not configured, email notifications disabled")
		return s, nil
	}

	client, err := gomail.NewClient(cfg.Server,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("mail: create smtp client: %w", err)
	}
	s.deliver = func(ctx context.Context, msg *gomail.Msg) error {
		return client.DialAndSendWithContext(ctx, msg)
	}
	s.log.Info("smtp configured", logger.Fields("server", cfg.Server, "port", cfg.Port))
	return s, nil
}

// NewWithDeliver builds a sender with a custom delivery function for tests.
func NewWithDeliver(cfg config.SMTPConfig, deliver deliverFunc, log *logger.Logger) *Sender {
	return &Sender{cfg: cfg, enabled: true, deliver: deliver, log: log.WithComponent("mail")}
}

// Enabled reports whether outbound mail is configured.
func (s *Sender) Enabled() bool { return s.enabled }

// send builds a multipart message and delivers it. Errors are returned to
// the caller, who decides whether delivery failure is fatal for the
// surrounding operation.
func (s *Sender) send(ctx context.Context, to, subject, htmlBody string) error {
	if !s.enabled {
		s.log.Debug("mail disabled, dropping message", logger.Fields("subject", subject))
		return nil
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.cfg.AppName, s.cfg.From); err != nil {
		return fmt.Errorf("mail: set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail: set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, stripTags(htmlBody))
	msg.AddAlternativeString(gomail.TypeTextHTML, htmlBody)

	if err := s.deliver(ctx, msg); err != nil {
		s.log.Error("send failed", logger.Fields(logger.FieldError, err.Error(), "subject", subject))
		return fmt.Errorf("mail: send: %w", err)
	}
	s.log.Info("email sent", logger.Fields("subject", subject))
	return nil
}
