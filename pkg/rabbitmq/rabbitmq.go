package rabbitmq

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"contactbook/internal/models"

	amqp "github.com/streadway/amqp"
)

// ContactEventsQueue is the durable queue contact events are published to.
const ContactEventsQueue = "contact_events"

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient creates a new RabbitMQ client.
// It connects to RabbitMQ, opens a channel and declares the contact events queue.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declareQueue(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Printf("RabbitMQ client connected and %s declared.", ContactEventsQueue)

	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
}

func declareQueue(ch *amqp.Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		ContactEventsQueue, // name
		true,               // durable
		false,              // delete when unused
		false,              // exclusive
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare %s: %w", ContactEventsQueue, err)
	}
	return q, nil
}

// Close closes the RabbitMQ connection and channel.
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
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// PublishContactEvent publishes a contact event to the contact events queue as JSON.
func (c *Client) PublishContactEvent(event models.ContactEvent) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	body, err := EncodeEvent(event)
	if err != nil {
		return err
	}

	err = c.channel.Publish(
		"",                 // exchange: default exchange
		ContactEventsQueue, // routing key: the queue name
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         event.Type,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	log.Printf(" [x] Sent contact event: %s", body)
	return nil
}

// ConsumeContactEvents starts a goroutine that passes each decoded contact event to handler.
// Messages are acked when handler succeeds, nacked and requeued when it fails,
// and dropped when they cannot be decoded.
func (c *Client) ConsumeContactEvents(handler func(event models.ContactEvent) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	queue, err := declareQueue(c.channel)
	if err != nil {
		return err
	}

	msgs, err := c.channel.Consume(
		queue.Name, // queue
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Printf(" [*] Waiting for contact events. To exit press CTRL+C")

	go func() {
		for msg := range msgs {
			HandleDelivery(msg, handler)
		}
	}()

	return nil
}

// Acknowledger is the part of amqp.Delivery used to settle a message.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// HandleDelivery decodes one delivery, runs handler and settles the message.
func HandleDelivery(msg amqp.Delivery, handler func(event models.ContactEvent) error) {
	settle(&msg, msg.DeliveryTag, msg.Body, handler)
}

func settle(ack Acknowledger, tag uint64, body []byte, handler func(event models.ContactEvent) error) {
	event, err := DecodeEvent(body)
	if err != nil {
		log.Printf("Dropping malformed message %d: %v", tag, err)
		if nackErr := ack.Nack(false, false); nackErr != nil {
			log.Printf("Error nacking message %d: %v", tag, nackErr)
		}
		return
	}

	if err := handler(event); err != nil {
		log.Printf("Error processing message %d: %v", tag, err)
		if requeueErr := ack.Nack(false, true); requeueErr != nil {
			log.Printf("Error nacking message %d: %v", tag, requeueErr)
		}
		return
	}
	if ackErr := ack.Ack(false); ackErr != nil {
		log.Printf("Error acking message %d: %v", tag, ackErr)
	}
}

// EncodeEvent marshals a contact event, stamping it with the current time if unset.
func EncodeEvent(event models.ContactEvent) ([]byte, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal contact event to JSON: %w", err)
	}
	return body, nil
}

// DecodeEvent unmarshals a contact event published by PublishContactEvent.
func DecodeEvent(body []byte) (models.ContactEvent, error) {
	var event models.ContactEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return models.ContactEvent{}, fmt.Errorf("failed to unmarshal contact event: %w", err)
	}
	if event.Type == "" {
		return models.ContactEvent{}, fmt.Errorf("contact event has no type")
	}
	return event, nil
}

// LogContactEvent is a handler for ConsumeContactEvents that logs each event.
func LogContactEvent(event models.ContactEvent) error {
	log.Printf("Received contact event %s for contact %d at %s",
		event.Type, event.ContactID, event.OccurredAt.Format(time.RFC3339))
	return nil
}
