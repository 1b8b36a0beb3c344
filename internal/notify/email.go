package notify

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/Dan9191/book-search-service/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendWelcome greets a newly registered user. It is a no-op when SMTP is not configured.
func (s *Sender) SendWelcome(to, username string) error {
	if !s.cfg.MailEnabled() {
		s.logger.Debugf("SMTP not configured, skipping welcome email to %s", to)
		return nil
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Welcome to Book Search"

	body := fmt.Sprintf("Dear %s,\n\n", username)
	body += "Your account is ready. Search the catalog and save the books you want to read later.\n"
	body += "\nHappy reading,\nBook Search"
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.sendWithin(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

// sendWithin caps how long a caller waits on the SMTP server.
// A delivery still in flight after the timeout is left to finish on its own.
func (s *Sender) sendWithin(e *email.Email, addr string, auth smtp.Auth) error {
	done := make(chan error, 1)
	go func() {
		done <- s.send(e, addr, auth)
	}()

	timer := time.NewTimer(s.cfg.SMTPTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("smtp server did not respond within %s", s.cfg.SMTPTimeout)
	}
}
