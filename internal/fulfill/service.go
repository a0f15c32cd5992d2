package fulfill

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/gini3d/marketd/internal/feed"
	"github.com/gini3d/marketd/internal/redisx"
)

// Order statuses surfaced to the API's order-status endpoint.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
)

// Service tracks order lifecycle events for back-office fulfillment,
// maintaining the order-status cache the API reads.
type Service struct {
	Redis       *redis.Client
	ServiceName string
}

// HandleOrderEvent is installed as the consumer handler for both order feed
// topics.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env feed.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	// dedup on event id
	dkey := fmt.Sprintf(redisx.KeyDedup, "fulfill", env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	switch env.EventType {
	case feed.EventOrderPlaced:
		p, err := feed.UnwrapPayload[feed.OrderPlacedPayload](env.Payload)
		if err != nil {
			return err
		}
		log.Printf("fulfill: order %s placed, %d seller order(s), %d sats",
			p.OrderID, len(p.Orders), p.TotalSats)
		return s.setStatus(ctx, p.OrderID, StatusPending, p.TotalSats)
	case feed.EventPaymentReceived:
		p, err := feed.UnwrapPayload[feed.PaymentReceivedPayload](env.Payload)
		if err != nil {
			return err
		}
		log.Printf("fulfill: order %s paid", p.OrderID)
		return s.setStatus(ctx, p.OrderID, StatusPaid, p.TotalSats)
	default:
		return nil // ignore
	}
}

func (s *Service) setStatus(ctx context.Context, orderID, status string, totalSats int64) error {
	body, _ := json.Marshal(map[string]any{
		"status":     status,
		"total_sats": totalSats,
	})
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	return s.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
}
