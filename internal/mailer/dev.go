package mailer

import "github.com/malabartours/bookings/pkg/logger"

// DevMailer prints mail to the log instead of sending it.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("dev mail", "to", toEmail, "subject", subject, "text", text)
	return "dev", nil
}
