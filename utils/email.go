package utils

import (
	"fmt"
	"net/smtp"
	"time"

	"taskhub/logging"

	"github.com/sony/gobreaker"
)

// Mailer delivers account e-mails such as password reset tokens.
type Mailer interface {
	Send(to, subject, body string) error
}

// LogMailer only records the message in the operational log.
type LogMailer struct{}

func (LogMailer) Send(to, subject, body string) error {
	logging.Logger.Infof("Event ID: EMAIL_NOT_SENT, Description: No SMTP server configured, message '%s' for '%s' kept in log only", subject, to)
	return nil
}

type SMTPConfig struct {
	Host     string
	Port     string
	From     string
	Password string
}

// SMTPMailer sends mail through an authenticated SMTP relay. Calls go through a
// circuit breaker so an unreachable relay fails fast.
type SMTPMailer struct {
	cfg     SMTPConfig
	breaker *gobreaker.CircuitBreaker
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "smtp-cb",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
	return &SMTPMailer{cfg: cfg, breaker: breaker, send: smtp.SendMail}
}

// NewMailer picks the SMTP mailer when a relay is configured.
func NewMailer(cfg SMTPConfig) Mailer {
	if cfg.Host == "" || cfg.From == "" {
		return LogMailer{}
	}
	return NewSMTPMailer(cfg)
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	logging.Logger.Debugf("Event ID: SEND_EMAIL_START, Description: Attempting to send email to '%s' with subject: '%s'", to, subject)

	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + m.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n" +
		body + "\r\n")

	var auth smtp.Auth
	if m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)
	}

	_, err := m.breaker.Execute(func() (interface{}, error) {
		return nil, m.send(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.From, []string{to}, message)
	})
	if err != nil {
		logging.Logger.Errorf("Event ID: SEND_EMAIL_FAILED, Description: Failed to send email to '%s' with subject '%s': %v", to, subject, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	logging.Logger.Infof("Event ID: SEND_EMAIL_SUCCESS, Description: Email successfully sent to '%s' with subject: '%s'", to, subject)
	return nil
}
