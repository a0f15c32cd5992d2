package feed

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Publisher wraps the order-lifecycle producers behind typed methods.
type Publisher struct {
	Orders      *Producer // market.order.placed
	Payments    *Producer // market.order.payment
	ServiceName string
}

func (p *Publisher) OrderPlaced(ctx context.Context, payload OrderPlacedPayload) error {
	return publish(p.Orders, p.ServiceName, EventOrderPlaced, payload.OrderID, MustMarshal(payload))
}

func (p *Publisher) PaymentReceived(ctx context.Context, payload PaymentReceivedPayload) error {
	return publish(p.Payments, p.ServiceName, EventPaymentReceived, payload.OrderID, MustMarshal(payload))
}

func publish(prod *Producer, producer, eventType, orderID string, payload []byte) error {
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: orderID,
		Payload:       payload,
	}
	prod.Publish(PartitionKey(orderID), MustMarshal(env),
		kafka.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafka.Header{Key: "x-event-version", Value: []byte("1")},
	)
	return nil
}
