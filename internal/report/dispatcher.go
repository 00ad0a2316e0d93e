package report

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"inbox-rpa/internal/config"
)

const (
	reportSubject = "[RPA] Reporte solicitado"
	reportBody    = "Adjunto encontrarás el reporte solicitado de procesos exitosos y fallidos."
)

// Dispatcher sends the outcome export artifact to a requester by email.
type Dispatcher interface {
	Dispatch(to, attachmentPath string) error
}

// SMTPDispatcher delivers reports over the configured SMTP transport.
type SMTPDispatcher struct {
	cfg config.SMTPConfig
}

// NewSMTPDispatcher creates a dispatcher for the configured SMTP account.
func NewSMTPDispatcher(cfg config.SMTPConfig) *SMTPDispatcher {
	return &SMTPDispatcher{cfg: cfg}
}

// Dispatch sends the report message to a single recipient, attaching the
// artifact when it exists on disk.
func (d *SMTPDispatcher) Dispatch(to, attachmentPath string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", d.cfg.User)
	m.SetHeader("To", to)
	m.SetHeader("Subject", reportSubject)
	m.SetBody("text/plain", reportBody)

	if attachmentPath != "" {
		if _, err := os.Stat(attachmentPath); err == nil {
			m.Attach(attachmentPath)
		} else {
			logrus.Warnf("Report attachment %s not found, sending without it", attachmentPath)
		}
	}

	dialer := gomail.NewDialer(d.cfg.Host, d.cfg.Port, d.cfg.User, d.cfg.Password)
	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send report to %s: %w", to, err)
	}

	logrus.Infof("Report sent to %s", to)
	return nil
}
