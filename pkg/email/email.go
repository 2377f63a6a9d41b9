package email

import (
	"fmt"
	"net/smtp"

	"github.com/Dias221467/agency-portal/internal/config"
)

// Mailer sends plain text mail through one SMTP server.
type Mailer struct {
	cfg  config.SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

// Enabled reports whether an SMTP host is configured.
func (m *Mailer) Enabled() bool {
	return m.cfg.Host != ""
}

// SendEmail sends a plain text email using SMTP.
func (m *Mailer) SendEmail(to, subject, body string) error {
	if !m.Enabled() {
		return fmt.Errorf("failed to send email: smtp is not configured")
	}
	auth := smtp.PlainAuth("", m.cfg.Sender, m.cfg.Password, m.cfg.Host)

	msg := []byte("From: " + m.cfg.Sender + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" + body + "\r\n")

	address := m.cfg.Host + ":" + m.cfg.Port

	if err := m.send(address, auth, m.cfg.Sender, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}
