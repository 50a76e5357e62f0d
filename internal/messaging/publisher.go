package messaging

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

type EventType string

const (
	OrderCreated          EventType = "order.created"
	OrderPaid             EventType = "order.paid"
	OrderFailed           EventType = "order.failed"
	OrderStatusChanged    EventType = "order.status_changed"
	CertificationCreated  EventType = "certification.created"
	CertificationPaid     EventType = "certification.paid"
	CertificationFailed   EventType = "certification.failed"
	CertificationReviewed EventType = "certification.reviewed"
)

// CheckoutEvent notifies downstream consumers (fulfillment, notification)
// of an order or certification lifecycle change. Publishing is best-effort:
// the payment path must never fail because the broker is down.
type CheckoutEvent struct {
	ID          uuid.UUID `json:"id"`
	Type        EventType `json:"type"`
	EntityID    uuid.UUID `json:"entity_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Status      string    `json:"status"`
	AmountCents int64     `json:"amount_cents"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type Publisher struct {
	client *RabbitMQClient
}

func NewPublisher(client *RabbitMQClient) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) PublishCheckoutEvent(event CheckoutEvent) error {
	if !p.client.IsConnected() {
		return fmt.Errorf("no connection to RabbitMQ")
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("event serialization error: %w", err)
	}

	routingKey := fmt.Sprintf("checkout.%s", event.Type)

	err = p.client.Channel().Publish(
		p.client.config.Exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID.String(),
			Timestamp:    event.OccurredAt,
			Headers: amqp.Table{
				"entity_id":  event.EntityID.String(),
				"owner_id":   event.OwnerID.String(),
				"event_type": string(event.Type),
			},
		},
	)
	if err != nil {
		return fmt.Errorf("event publish error: %w", err)
	}

	log.Printf("Event published: %s entity=%s", routingKey, event.EntityID)
	return nil
}
