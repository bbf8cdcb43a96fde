package rabbitmq

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"herbstore/internal/models"

	amqp "github.com/streadway/amqp"
)

// EventTypeOrderCompleted is set as the message type on order events.
const EventTypeOrderCompleted = "order.completed"

// Config holds RabbitMQ connection details.
type Config struct {
	URL   string
	Queue string
}

// Client publishes and consumes order events on a single durable queue.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	mu      sync.Mutex
}

// NewClient dials RabbitMQ, opens a channel and declares the order queue.
func NewClient(cfg Config) (*Client, error) {
	queue := cfg.Queue
	if queue == "" {
		queue = "order_queue"
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declare(ch, queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare %s: %w", queue, err)
	}

	log.Printf("RabbitMQ client connected and %s declared.", queue)

	return &Client{conn: conn, channel: ch, queue: queue}, nil
}

// DeadLetterQueue names the queue that collects events which kept failing.
func DeadLetterQueue(queue string) string {
	return queue + ".dead"
}

// declare sets up queue together with its dead-letter queue. Rejected
// messages are routed there through the default exchange.
func declare(ch *amqp.Channel, queue string) (amqp.Queue, error) {
	if _, err := ch.QueueDeclare(DeadLetterQueue(queue), true, false, false, false, nil); err != nil {
		return amqp.Queue{}, err
	}
	return ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": DeadLetterQueue(queue),
		},
	)
}

// Close closes the channel and the connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing RabbitMQ client: %v", errs)
	}
	return nil
}

// EncodeOrderCompleted builds the persistent message published for event.
func EncodeOrderCompleted(event models.OrderCompletedEvent, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal order event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Type:         EventTypeOrderCompleted,
		MessageId:    event.Reference,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
	}, nil
}

// DecodeOrderCompleted parses the body of a delivered order event.
func DecodeOrderCompleted(body []byte) (models.OrderCompletedEvent, error) {
	var event models.OrderCompletedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return event, fmt.Errorf("malformed order event: %w", err)
	}
	if event.OrderID == "" || event.Email == "" {
		return event, fmt.Errorf("malformed order event: missing order id or email")
	}
	return event, nil
}

// PublishOrderCompleted publishes event to the order queue.
func (c *Client) PublishOrderCompleted(event models.OrderCompletedEvent) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	msg, err := EncodeOrderCompleted(event, time.Now())
	if err != nil {
		return err
	}

	c.mu.Lock()
	err = c.channel.Publish("", c.queue, false, false, msg)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	log.Printf("Published %s for order %s", EventTypeOrderCompleted, event.OrderID)
	return nil
}

// ConsumeOrderEvents delivers every message on the order queue to handler in
// a background goroutine. See settle for how results are acknowledged.
func (c *Client) ConsumeOrderEvents(handler func(msg amqp.Delivery) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Printf("Waiting for order events on %s", c.queue)

	go func() {
		for msg := range msgs {
			settle(msg, handler(msg))
		}
	}()

	return nil
}

// settle acks a handled message. A failed message is requeued once; when
// it fails again on redelivery it is rejected to the dead-letter queue.
func settle(msg amqp.Delivery, err error) {
	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			log.Printf("Error acking message %d: %v", msg.DeliveryTag, ackErr)
		}
		return
	}

	requeue := !msg.Redelivered
	if requeue {
		log.Printf("Error processing message %d, requeueing: %v", msg.DeliveryTag, err)
	} else {
		log.Printf("Error processing redelivered message %d (%s), dead-lettering: %v", msg.DeliveryTag, msg.MessageId, err)
	}
	if nackErr := msg.Nack(false, requeue); nackErr != nil {
		log.Printf("Error nacking message %d: %v", msg.DeliveryTag, nackErr)
	}
}
