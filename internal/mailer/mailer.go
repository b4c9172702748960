package mailer

// Mailer delivers transactional booking mail. Implementations: MailerSend,
// SMTP, and a dev logger.
type Mailer interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
}
