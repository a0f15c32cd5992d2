package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/gini3d/marketd/internal/cart"
	"github.com/gini3d/marketd/internal/feed"
	"github.com/gini3d/marketd/internal/market"
	"github.com/gini3d/marketd/internal/rates"
)

const (
	sellerA = "d887f1a249412f06d7c043d70aca17d326ba0d26ddfa1793d7bab5a141737412"
	sellerB = "211f325b5396968ac0c79b7c0a030d768206d32ac61f93f143de112b859bd46f"
	buyer   = "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
)

type fakeIdentity struct {
	user *market.SellerProfile
}

func (f *fakeIdentity) User() *market.SellerProfile { return f.user }

type fakeStalls struct {
	stalls map[string][]market.Stall
	err    error
}

func (f *fakeStalls) FetchStalls(context.Context, []string) (map[string][]market.Stall, error) {
	return f.stalls, f.err
}

// staticConverter converts against fixed rates: 80000 GBP, 100000 USD, 90000 EUR.
type staticConverter struct{}

func (staticConverter) ConvertToSats(_ context.Context, amount decimal.Decimal, currency string) int64 {
	return rates.Convert(amount, currency, rates.ExchangeRates{
		BTCGBP: 80000, BTCUSD: 100000, BTCEUR: 90000,
	})
}

type fakeFeed struct {
	placed   []feed.OrderPlacedPayload
	payments []feed.PaymentReceivedPayload
	err      error
}

func (f *fakeFeed) OrderPlaced(_ context.Context, p feed.OrderPlacedPayload) error {
	if f.err != nil {
		return f.err
	}
	f.placed = append(f.placed, p)
	return nil
}

func (f *fakeFeed) PaymentReceived(_ context.Context, p feed.PaymentReceivedPayload) error {
	if f.err != nil {
		return f.err
	}
	f.payments = append(f.payments, p)
	return nil
}

type CoordinatorSuite struct {
	suite.Suite

	ctx      context.Context
	cart     *cart.Store
	identity *fakeIdentity
	stalls   *fakeStalls
	orders   *fakeFeed
	coord    *Coordinator
}

func (s *CoordinatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.cart = cart.NewStore(cart.NewMemoryStorage(), "gini3d-cart")
	s.Require().NoError(s.cart.Load(s.ctx))

	// seller A runs a GBP stall with one zone; seller B has no stall and
	// falls back to the default zones
	s.stalls = &fakeStalls{stalls: map[string][]market.Stall{
		sellerA: {{
			ID:       "stall-a",
			Pubkey:   sellerA,
			Name:     "Gini3D",
			Currency: "GBP",
			Shipping: []market.ShippingZone{
				{ID: "uk", Name: "United Kingdom", Cost: 3.5, Regions: []string{"UK", "GB"}},
			},
		}},
	}}
	s.identity = &fakeIdentity{user: &market.SellerProfile{Pubkey: buyer}}
	s.orders = &fakeFeed{}
	s.coord = NewCoordinator(s.cart, s.identity, s.stalls, staticConverter{}, s.orders)
	s.coord.CloseDelay = 10 * time.Millisecond

	s.cart.AddItem(s.ctx, market.Product{
		ID:     "p1",
		Pubkey: sellerA,
		Title:  "Axolotl",
		Price:  market.Price{Amount: "1000", Currency: "sats"},
	}, 2)
	s.cart.AddItem(s.ctx, market.Product{
		ID:     "p2",
		Pubkey: sellerB,
		Title:  "Seed Plate",
		Price:  market.Price{Amount: "100", Currency: "GBP"},
	}, 1)
}

func (s *CoordinatorSuite) shippingInfo() ShippingInfo {
	return ShippingInfo{
		Name:       "Sat Oshi",
		Email:      "sat@example.com",
		Address:    "1 Chain St",
		City:       "London",
		PostalCode: "EC1",
		Country:    "UK",
		Selections: map[string]ZoneSelection{
			sellerA: {ZoneID: "uk"},
			sellerB: {ZoneID: "worldwide"},
		},
	}
}

func (s *CoordinatorSuite) TestInitialState() {
	snap := s.coord.State(s.ctx)
	s.Equal(StepShipping, snap.Step)
	s.Empty(snap.OrderID)
	s.Len(snap.Orders, 2)
	s.Equal(int64(2000), snap.Orders[0].SubtotalSats)
	s.Equal(int64(125_000), snap.Orders[1].SubtotalSats)
}

func (s *CoordinatorSuite) TestSubmitShipping() {
	s.Require().NoError(s.coord.SubmitShipping(s.ctx, s.shippingInfo()))

	snap := s.coord.State(s.ctx)
	s.Equal(StepPayment, snap.Step)
	s.NotEmpty(snap.OrderID)

	// 2000 sats + uk shipping 3.5 GBP (4375 sats)
	// + 125000 sats + worldwide shipping 15 GBP (18750 sats)
	s.Equal(int64(150_125), snap.TotalSats)

	s.Require().Len(s.orders.placed, 1)
	placed := s.orders.placed[0]
	s.Equal(snap.OrderID, placed.OrderID)
	s.Equal(buyer, placed.BuyerPubkey)
	s.Equal(int64(150_125), placed.TotalSats)
	s.Require().Len(placed.Orders, 2)
	s.Equal("uk", placed.Orders[0].ShippingZoneID)
	s.Equal(int64(4375), placed.Orders[0].ShippingSats)
	s.Equal("worldwide", placed.Orders[1].ShippingZoneID)
	s.Equal(int64(18_750), placed.Orders[1].ShippingSats)
	s.Equal("Sat Oshi", placed.Shipping.Name)
}

func (s *CoordinatorSuite) TestSubmitShippingRequiresLogin() {
	s.identity.user = nil
	err := s.coord.SubmitShipping(s.ctx, s.shippingInfo())
	s.ErrorIs(err, ErrNotAuthenticated)
	s.Equal(StepShipping, s.coord.State(s.ctx).Step)
}

func (s *CoordinatorSuite) TestSubmitShippingEmptyCart() {
	s.cart.Clear(s.ctx)
	err := s.coord.SubmitShipping(s.ctx, s.shippingInfo())
	s.ErrorIs(err, ErrEmptyCart)
}

func (s *CoordinatorSuite) TestSubmitShippingMissingSelection() {
	info := s.shippingInfo()
	delete(info.Selections, sellerB)

	err := s.coord.SubmitShipping(s.ctx, info)
	var verr *ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "shipping_"+sellerB)
	s.NotContains(verr.Fields, "shipping_"+sellerA)

	snap := s.coord.State(s.ctx)
	s.Equal(StepShipping, snap.Step)
	s.Contains(snap.FieldErrors, "shipping_"+sellerB)
	s.Empty(s.orders.placed, "no order until the form validates")
}

func (s *CoordinatorSuite) TestSubmitShippingUnknownZone() {
	info := s.shippingInfo()
	info.Selections[sellerA] = ZoneSelection{ZoneID: "mars"}

	err := s.coord.SubmitShipping(s.ctx, info)
	var verr *ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "shipping_"+sellerA)
}

func (s *CoordinatorSuite) TestSubmitShippingZoneWithoutIDUnselectable() {
	s.stalls.stalls[sellerA][0].Shipping = []market.ShippingZone{
		{ID: "", Name: "Mystery", Cost: 1, Regions: []string{"*"}},
	}
	info := s.shippingInfo()
	info.Selections[sellerA] = ZoneSelection{ZoneID: ""}

	err := s.coord.SubmitShipping(s.ctx, info)
	var verr *ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "shipping_"+sellerA)
}

func (s *CoordinatorSuite) TestSubmitShippingInvalidEmail() {
	info := s.shippingInfo()
	info.Email = "not an email"

	err := s.coord.SubmitShipping(s.ctx, info)
	var verr *ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "email")
}

func (s *CoordinatorSuite) TestSubmitShippingEmptyEmailAllowed() {
	info := s.shippingInfo()
	info.Email = ""
	s.NoError(s.coord.SubmitShipping(s.ctx, info))
}

func (s *CoordinatorSuite) TestSubmitShippingStallFetchFailure() {
	s.stalls.err = errors.New("relays unreachable")

	err := s.coord.SubmitShipping(s.ctx, s.shippingInfo())
	s.Error(err)

	snap := s.coord.State(s.ctx)
	s.Equal(StepShipping, snap.Step)
	s.Contains(snap.Error, "could not load shipping options")
}

func (s *CoordinatorSuite) TestSubmitShippingPublishFailure() {
	s.orders.err = errors.New("broker down")

	err := s.coord.SubmitShipping(s.ctx, s.shippingInfo())
	s.Error(err)

	snap := s.coord.State(s.ctx)
	s.Equal(StepShipping, snap.Step, "no partial transition on publish failure")
	s.Empty(snap.OrderID)
	s.Contains(snap.Error, "failed to submit order")
}

func (s *CoordinatorSuite) TestCompletePayment() {
	s.Require().NoError(s.coord.SubmitShipping(s.ctx, s.shippingInfo()))
	orderID := s.coord.State(s.ctx).OrderID

	s.Require().NoError(s.coord.CompletePayment(s.ctx))

	snap := s.coord.State(s.ctx)
	s.Equal(StepConfirmation, snap.Step)
	s.Equal(orderID, snap.OrderID)
	s.Equal(0, s.cart.TotalItems(), "cart cleared after payment")

	s.Require().Len(s.orders.payments, 1)
	s.Equal(orderID, s.orders.payments[0].OrderID)
	s.Equal(int64(150_125), s.orders.payments[0].TotalSats)
}

func (s *CoordinatorSuite) TestCompletePaymentFromShippingRejected() {
	s.Error(s.coord.CompletePayment(s.ctx))
	s.Equal(2, len(s.cart.Items()), "cart untouched")
}

func (s *CoordinatorSuite) TestCompletePaymentFeedFailureStillConfirms() {
	s.Require().NoError(s.coord.SubmitShipping(s.ctx, s.shippingInfo()))
	s.orders.err = errors.New("broker down")

	s.Require().NoError(s.coord.CompletePayment(s.ctx))
	s.Equal(StepConfirmation, s.coord.State(s.ctx).Step)
	s.Equal(0, s.cart.TotalItems())
}

func (s *CoordinatorSuite) TestCloseResetsAfterDelay() {
	s.Require().NoError(s.coord.SubmitShipping(s.ctx, s.shippingInfo()))
	s.Require().NoError(s.coord.CompletePayment(s.ctx))

	s.coord.Close()
	s.Eventually(func() bool {
		snap := s.coord.State(s.ctx)
		return snap.Step == StepShipping && snap.OrderID == ""
	}, time.Second, 5*time.Millisecond)
}

func (s *CoordinatorSuite) TestValidationFailureClearsStaleBanner() {
	s.stalls.err = errors.New("relays unreachable")
	s.Error(s.coord.SubmitShipping(s.ctx, s.shippingInfo()))
	s.NotEmpty(s.coord.State(s.ctx).Error)

	s.stalls.err = nil
	info := s.shippingInfo()
	info.Email = "bad"
	s.Error(s.coord.SubmitShipping(s.ctx, info))

	snap := s.coord.State(s.ctx)
	s.Empty(snap.Error, "old banner does not survive into a field-error state")
	s.Contains(snap.FieldErrors, "email")
}

func (s *CoordinatorSuite) TestSuccessfulSubmitClearsPreviousErrors() {
	info := s.shippingInfo()
	info.Email = "bad"
	s.Error(s.coord.SubmitShipping(s.ctx, info))
	s.NotEmpty(s.coord.State(s.ctx).FieldErrors)

	s.Require().NoError(s.coord.SubmitShipping(s.ctx, s.shippingInfo()))
	snap := s.coord.State(s.ctx)
	s.Empty(snap.FieldErrors)
	s.Empty(snap.Error)
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Step
		ok       bool
	}{
		{StepShipping, StepPayment, true},
		{StepPayment, StepConfirmation, true},
		{StepShipping, StepConfirmation, false},
		{StepPayment, StepShipping, false},
		{StepConfirmation, StepPayment, false},
		{StepConfirmation, StepShipping, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}
