package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"

	"herbstore/internal/models"
	"herbstore/pkg/rabbitmq"

	amqp "github.com/streadway/amqp"
)

// Mailer delivers a single HTML message.
type Mailer interface {
	Send(to, subject, html string) error
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Hi {{.FirstName}},</p>
<p>Thank you for shopping with us. We received your payment of {{.Total.StringFixed 2}} {{.Currency}} for {{.ItemCount}} item(s).</p>
<p>Order: <strong>{{.OrderID}}</strong><br>Reference: {{.Reference}}</p>
</body>
</html>
`))

// NotificationService turns order events into customer emails.
type NotificationService struct {
	mailer Mailer
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(mailer Mailer) *NotificationService {
	return &NotificationService{mailer: mailer}
}

// SendOrderConfirmation emails the buyer of event.
func (s *NotificationService) SendOrderConfirmation(event models.OrderCompletedEvent) error {
	var body bytes.Buffer
	if err := confirmationTemplate.Execute(&body, event); err != nil {
		return fmt.Errorf("failed to render confirmation: %w", err)
	}
	subject := fmt.Sprintf("Order confirmed: %s", event.Reference)
	return s.mailer.Send(event.Email, subject, body.String())
}

// HandleDelivery is the consumer callback for the order queue. Malformed
// events are dropped so they are not redelivered forever.
func (s *NotificationService) HandleDelivery(msg amqp.Delivery) error {
	return s.handle(msg.Body)
}

func (s *NotificationService) handle(body []byte) error {
	event, err := rabbitmq.DecodeOrderCompleted(body)
	if err != nil {
		log.Printf("Dropping order event: %v", err)
		return nil
	}
	if err := s.SendOrderConfirmation(event); err != nil {
		return fmt.Errorf("order %s: %w", event.OrderID, err)
	}
	return nil
}
