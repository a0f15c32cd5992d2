package nostr

import "context"

// Client queries and publishes signed events on a set of relays.
// Constructed explicitly and passed into services so tests can substitute
// a double; Close tears down the underlying connections.
type Client interface {
	FetchEvents(ctx context.Context, filter Filter) ([]Event, error)
	Publish(ctx context.Context, ev Event) error
	Close()
}
