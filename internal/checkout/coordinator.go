package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gini3d/marketd/internal/feed"
	"github.com/gini3d/marketd/internal/market"
)

// DefaultCloseDelay matches the dialog close animation; state resets only
// after it has finished.
const DefaultCloseDelay = 300 * time.Millisecond

var (
	ErrNotAuthenticated = errors.New("login required before checkout")
	ErrEmptyCart        = errors.New("cart is empty")

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidationError carries field-scoped messages; the transition is blocked
// and the state stays at shipping.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// Collaborator surfaces, satisfied by the cart store, auth service, stall
// service, rates service and feed publisher. Explicit injection keeps the
// state machine testable on its own.
type (
	CartStore interface {
		Items() []market.CartItem
		Clear(ctx context.Context)
	}
	Identity interface {
		User() *market.SellerProfile
	}
	StallSource interface {
		FetchStalls(ctx context.Context, sellerPubkeys []string) (map[string][]market.Stall, error)
	}
	Converter interface {
		ConvertToSats(ctx context.Context, amount decimal.Decimal, currency string) int64
	}
	OrderFeed interface {
		OrderPlaced(ctx context.Context, p feed.OrderPlacedPayload) error
		PaymentReceived(ctx context.Context, p feed.PaymentReceivedPayload) error
	}
)

// ZoneSelection is the buyer's chosen shipping zone for one seller.
type ZoneSelection struct {
	ZoneID string `json:"zoneId"`
}

// ShippingInfo is the shipping form: one address plus a zone selection per
// seller in the order.
type ShippingInfo struct {
	Name       string                   `json:"name"`
	Email      string                   `json:"email,omitempty"`
	Phone      string                   `json:"phone,omitempty"`
	Address    string                   `json:"address"`
	City       string                   `json:"city"`
	State      string                   `json:"state,omitempty"`
	PostalCode string                   `json:"postalCode"`
	Country    string                   `json:"country"`
	Message    string                   `json:"message,omitempty"`
	Selections map[string]ZoneSelection `json:"selections"` // seller pubkey -> zone
}

// Snapshot is the externally visible coordinator state.
type Snapshot struct {
	Step        Step                 `json:"step"`
	OrderID     string               `json:"orderId,omitempty"`
	TotalSats   int64                `json:"totalSats"`
	Orders      []market.SellerOrder `json:"orders"`
	Error       string               `json:"error,omitempty"`
	FieldErrors map[string]string    `json:"fieldErrors,omitempty"`
}

// Coordinator sequences shipping selection, payment presentation and
// confirmation for the current cart.
type Coordinator struct {
	cart      CartStore
	identity  Identity
	stalls    StallSource
	converter Converter
	orderFeed OrderFeed // optional

	CloseDelay time.Duration

	mu        sync.Mutex
	step      Step
	orderID   string
	totalSats int64
	banner    string
	fields    map[string]string
}

func NewCoordinator(cart CartStore, identity Identity, stalls StallSource, converter Converter, orderFeed OrderFeed) *Coordinator {
	return &Coordinator{
		cart:       cart,
		identity:   identity,
		stalls:     stalls,
		converter:  converter,
		orderFeed:  orderFeed,
		CloseDelay: DefaultCloseDelay,
		step:       StepShipping,
	}
}

// State returns the current step plus the per-seller order view, recomputed
// from the cart and current rates on every call.
func (c *Coordinator) State(ctx context.Context) Snapshot {
	orders := market.GroupBySeller(c.cart.Items(), c.convertFunc(ctx), market.SellerMetadata)

	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Step:        c.step,
		OrderID:     c.orderID,
		TotalSats:   c.totalSats,
		Orders:      orders,
		Error:       c.banner,
		FieldErrors: copyFields(c.fields),
	}
}

// SubmitShipping validates the form and moves shipping → payment. Every
// seller present in the order needs a shipping zone; failures are field
// scoped and leave the state at shipping. Any error while preparing the
// payment step becomes a single banner error, also without transitioning.
func (c *Coordinator) SubmitShipping(ctx context.Context, info ShippingInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !CanTransition(c.step, StepPayment) {
		return fmt.Errorf("cannot submit shipping from step %q", c.step)
	}

	user := c.identity.User()
	if user == nil {
		return ErrNotAuthenticated
	}

	items := c.cart.Items()
	if len(items) == 0 {
		return ErrEmptyCart
	}
	orders := market.GroupBySeller(items, c.convertFunc(ctx), market.SellerMetadata)

	sellers := make([]string, 0, len(orders))
	for _, o := range orders {
		sellers = append(sellers, o.SellerPubkey)
	}
	stalls, err := c.stalls.FetchStalls(ctx, sellers)
	if err != nil {
		c.banner = fmt.Sprintf("could not load shipping options: %v", err)
		return fmt.Errorf("fetch stalls: %w", err)
	}

	fields := make(map[string]string)
	if info.Email != "" && !emailPattern.MatchString(info.Email) {
		fields["email"] = "Please enter a valid email address"
	}

	total := int64(0)
	summaries := make([]feed.SellerOrderSummary, 0, len(orders))
	for _, order := range orders {
		zone := chooseZone(stalls, order.SellerPubkey, info.Selections)
		if zone == nil {
			fields["shipping_"+order.SellerPubkey] = "Please select a shipping option"
			continue
		}
		currency := market.SellerCurrency(stalls, order.SellerPubkey)
		shippingSats := c.converter.ConvertToSats(ctx, decimal.NewFromFloat(zone.Cost), currency)
		total += order.SubtotalSats + shippingSats
		summaries = append(summaries, feed.SellerOrderSummary{
			SellerPubkey:   order.SellerPubkey,
			SubtotalSats:   order.SubtotalSats,
			ShippingZoneID: zone.ID,
			ShippingSats:   shippingSats,
		})
	}
	if len(fields) > 0 {
		c.banner = ""
		c.fields = fields
		return &ValidationError{Fields: fields}
	}

	orderID := uuid.NewString()
	if c.orderFeed != nil {
		err := c.orderFeed.OrderPlaced(ctx, feed.OrderPlacedPayload{
			OrderID:     orderID,
			BuyerPubkey: user.Pubkey,
			Orders:      summaries,
			TotalSats:   total,
			Shipping: feed.ShippingAddress{
				Name:       info.Name,
				Email:      info.Email,
				Phone:      info.Phone,
				Address:    info.Address,
				City:       info.City,
				State:      info.State,
				PostalCode: info.PostalCode,
				Country:    info.Country,
				Message:    info.Message,
			},
		})
		if err != nil {
			c.banner = fmt.Sprintf("failed to submit order: %v", err)
			return fmt.Errorf("publish order: %w", err)
		}
	}

	c.orderID = orderID
	c.totalSats = total
	c.banner = ""
	c.fields = nil
	c.step = StepPayment
	return nil
}

// CompletePayment is the external "payment complete" signal (a stub standing
// in for real settlement confirmation). The cart is cleared unconditionally.
func (c *Coordinator) CompletePayment(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !CanTransition(c.step, StepConfirmation) {
		return fmt.Errorf("cannot complete payment from step %q", c.step)
	}

	c.cart.Clear(ctx)
	if c.orderFeed != nil {
		err := c.orderFeed.PaymentReceived(ctx, feed.PaymentReceivedPayload{
			OrderID:   c.orderID,
			TotalSats: c.totalSats,
		})
		if err != nil {
			// payment already happened; confirmation still proceeds
			log.Printf("checkout: payment event for %s: %v", c.orderID, err)
		}
	}
	c.step = StepConfirmation
	return nil
}

// Close resets the coordinator once the dialog close animation has run.
func (c *Coordinator) Close() {
	time.AfterFunc(c.CloseDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.step = StepShipping
		c.orderID = ""
		c.totalSats = 0
		c.banner = ""
		c.fields = nil
	})
}

func (c *Coordinator) convertFunc(ctx context.Context) market.ConvertFunc {
	return func(amount decimal.Decimal, currency string) int64 {
		return c.converter.ConvertToSats(ctx, amount, currency)
	}
}

// chooseZone resolves the selected zone for a seller, nil when nothing valid
// is selected. Zones with an empty id stay unselectable.
func chooseZone(stalls map[string][]market.Stall, pubkey string, selections map[string]ZoneSelection) *market.ShippingZone {
	sel, ok := selections[pubkey]
	if !ok || sel.ZoneID == "" {
		return nil
	}
	for _, zone := range market.SellerShipping(stalls, pubkey) {
		if zone.ID == sel.ZoneID {
			z := zone
			return &z
		}
	}
	return nil
}

func copyFields(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
