// Package notifier delivers auditor alerts when a chain fails verification.
package notifier

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/semcare/triage-api/pkg/circuitbreaker"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Mailer sends tamper alerts over SMTP, behind a breaker so a dead mail
// relay cannot stall the integrity sweep.
type Mailer struct {
	dialer *gomail.Dialer
	config Config
	cb     *circuitbreaker.CircuitBreaker
}

func NewMailer(config Config) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		config: config,
		cb: circuitbreaker.New(circuitbreaker.Settings{
			Name:        "smtp",
			MaxFailures: 3,
			Timeout:     time.Minute,
		}),
	}
}

// TamperAlert notifies the configured auditors that a patient chain failed
// verification. The message carries the patient id only, never record
// content.
func (m *Mailer) TamperAlert(patientID string, detectedAt time.Time) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", m.config.To...)
	msg.SetHeader("Subject", fmt.Sprintf("chain integrity failure for patient %s", patientID))
	msg.SetBody("text/plain", fmt.Sprintf(
		"Chain verification failed for patient %s at %s.\n\n"+
			"The stored record chain no longer reproduces its linked hashes. "+
			"Review the access trail for this patient before trusting further reads.",
		patientID, detectedAt.Format(time.RFC3339),
	))

	return m.cb.Execute(func() error {
		return m.dialer.DialAndSend(msg)
	})
}
