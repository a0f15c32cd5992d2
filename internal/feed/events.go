package feed

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced     = "OrderPlaced"
	EventPaymentReceived = "PaymentReceived"
)

const (
	TopicOrderPlaced     = "market.order.placed"
	TopicPaymentReceived = "market.order.payment"
)

// PartitionKey keeps all events of one order in order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

// Envelope is the versioned wrapper around every feed event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

// SellerOrderSummary is the per-seller slice of a placed order.
type SellerOrderSummary struct {
	SellerPubkey   string `json:"seller_pubkey"`
	SubtotalSats   int64  `json:"subtotal_sats"`
	ShippingZoneID string `json:"shipping_zone_id"`
	ShippingSats   int64  `json:"shipping_sats"`
}

// ShippingAddress travels with the placed order for fulfillment.
type ShippingAddress struct {
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Message    string `json:"message,omitempty"`
}

type OrderPlacedPayload struct {
	OrderID     string               `json:"order_id"`
	BuyerPubkey string               `json:"buyer_pubkey"`
	Orders      []SellerOrderSummary `json:"orders"`
	TotalSats   int64                `json:"total_sats"`
	Shipping    ShippingAddress      `json:"shipping"`
}

type PaymentReceivedPayload struct {
	OrderID   string `json:"order_id"`
	TotalSats int64  `json:"total_sats"`
}
