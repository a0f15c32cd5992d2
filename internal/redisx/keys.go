package redisx

import "time"

const (
	// Persisted cart: JSON array of cart items under a fixed key.
	KeyCart = "gini3d-cart"

	// Persisted auth session: JSON profile under a fixed key.
	KeySession = "gini3d_auth"

	// Cache order status for fast GETs: order_status:{order_id}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
