package services

import (
	"fmt"
	"log"
	"os"

	"shortlet-server/models"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends transactional booking mail. All sends are best-effort:
// failures are logged, never surfaced to the booking flow.
type Mailer struct {
	apiKey string
	from   string
}

func NewMailerFromEnv() *Mailer {
	return &Mailer{
		apiKey: os.Getenv("SENDGRID_API_KEY"),
		from:   os.Getenv("MAIL_FROM"),
	}
}

func (m *Mailer) send(to, subject, body string) error {
	if m.apiKey == "" || m.from == "" {
		return fmt.Errorf("mailer is not configured")
	}

	fromEmail := mail.NewEmail("Shortlet", m.from)
	toEmail := mail.NewEmail("", to)
	message := mail.NewSingleEmail(fromEmail, subject, toEmail, body, fmt.Sprintf("<pre>%s</pre>", body))

	client := sendgrid.NewSendClient(m.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d body=%s", response.StatusCode, response.Body)
	}
	return nil
}

// SendBookingPaid notifies the guest that their payment went through.
func (m *Mailer) SendBookingPaid(booking *models.Booking, to string) {
	subject := "Your booking is confirmed"
	body := fmt.Sprintf(
		"Your payment of %.2f was received (ref %s).\nCheck-in: %s\nCheck-out: %s\nNights: %d",
		booking.Total, booking.Reference,
		booking.CheckIn.Format("2 Jan 2006"), booking.CheckOut.Format("2 Jan 2006"),
		booking.Nights,
	)
	if err := m.send(to, subject, body); err != nil {
		log.Printf("booking %d: confirmation mail failed: %v", booking.ID, err)
	}
}

// SendBookingCancelled notifies the guest of a cancellation.
func (m *Mailer) SendBookingCancelled(booking *models.Booking, to string) {
	subject := "Your booking was cancelled"
	body := fmt.Sprintf(
		"Booking #%d (%s to %s) has been cancelled.",
		booking.ID,
		booking.CheckIn.Format("2 Jan 2006"), booking.CheckOut.Format("2 Jan 2006"),
	)
	if err := m.send(to, subject, body); err != nil {
		log.Printf("booking %d: cancellation mail failed: %v", booking.ID, err)
	}
}
