package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/gini3d/marketd/internal/market"
)

// Store owns the buyer's selected items. At most one item per distinct
// product id; adding an existing product increments its quantity.
//
// Persistence only starts after Load completes: an empty just-constructed
// store must never clobber a previously saved cart.
type Store struct {
	mu      sync.RWMutex
	items   []market.CartItem
	loaded  bool
	storage Storage
	key     string
}

func NewStore(storage Storage, key string) *Store {
	return &Store{storage: storage, key: key}
}

// Load restores the persisted cart. A corrupt value is discarded and treated
// as absent rather than failing startup.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.storage.Load(ctx, s.key)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		// storage unavailable; start empty, persist once it recovers
		log.Printf("cart: load: %v", err)
	default:
		var items []market.CartItem
		if err := json.Unmarshal(data, &items); err != nil {
			log.Printf("cart: discarding corrupt stored cart: %v", err)
		} else {
			s.items = items
		}
	}
	s.loaded = true
	return nil
}

// AddItem puts a product in the cart, incrementing the quantity when it is
// already there. Quantities below one count as one.
func (s *Store) AddItem(ctx context.Context, product market.Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].Product.ID == product.ID {
			s.items[i].Quantity += quantity
			s.persistLocked(ctx)
			return
		}
	}
	s.items = append(s.items, market.CartItem{Product: product, Quantity: quantity})
	s.persistLocked(ctx)
}

func (s *Store) RemoveItem(ctx context.Context, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(productID)
	s.persistLocked(ctx)
}

// UpdateQuantity sets the quantity for a product. A quantity of zero or less
// removes the item; this is the documented behavior, identical to RemoveItem.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if quantity <= 0 {
		s.removeLocked(productID)
		s.persistLocked(ctx)
		return
	}
	for i := range s.items {
		if s.items[i].Product.ID == productID {
			s.items[i].Quantity = quantity
			break
		}
	}
	s.persistLocked(ctx)
}

func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.persistLocked(ctx)
}

func (s *Store) IsInCart(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.Product.ID == productID {
			return true
		}
	}
	return false
}

// Items returns a snapshot of the cart contents.
func (s *Store) Items() []market.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]market.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

// TotalItems is the sum of quantities.
func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

// TotalPrice sums native amounts and reports the cart currency. Only
// meaningful when the cart is mono-currency; mixed carts should use the
// sats-normalized seller orders instead.
func (s *Store) TotalPrice() (decimal.Decimal, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, item := range s.items {
		amount, err := decimal.NewFromString(item.Product.Price.Amount)
		if err != nil {
			continue
		}
		total = total.Add(amount.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	currency := "USD"
	if len(s.items) > 0 {
		currency = s.items[0].Product.Price.Currency
	}
	return total, currency
}

func (s *Store) removeLocked(productID string) {
	kept := s.items[:0]
	for _, item := range s.items {
		if item.Product.ID != productID {
			kept = append(kept, item)
		}
	}
	s.items = kept
}

// persistLocked writes the current items to storage, but only once the
// initial load has completed. Persistence failures are logged, not fatal.
func (s *Store) persistLocked(ctx context.Context) {
	if !s.loaded {
		return
	}
	data, err := json.Marshal(s.items)
	if err != nil {
		log.Printf("cart: marshal: %v", err)
		return
	}
	if err := s.storage.Save(ctx, s.key, data); err != nil {
		log.Printf("cart: persist: %v", err)
	}
}
