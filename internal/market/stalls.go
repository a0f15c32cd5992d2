package market

import (
	"context"
	"fmt"

	"github.com/gini3d/marketd/internal/nostr"
)

// StallService fetches seller shop configurations (kind 30017).
type StallService struct {
	Client nostr.Client
}

// FetchStalls returns each seller's stalls keyed by pubkey. Sellers without
// a stall simply have no entry; unparseable stall events are skipped.
func (s *StallService) FetchStalls(ctx context.Context, sellerPubkeys []string) (map[string][]Stall, error) {
	stalls := make(map[string][]Stall)
	if len(sellerPubkeys) == 0 {
		return stalls, nil
	}

	events, err := s.Client.FetchEvents(ctx, nostr.Filter{
		Kinds:   []int{nostr.KindStall},
		Authors: sellerPubkeys,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch stalls: %w", err)
	}

	for _, ev := range events {
		if stall := ParseStall(ev); stall != nil {
			stalls[ev.Pubkey] = append(stalls[ev.Pubkey], *stall)
		}
	}
	return stalls, nil
}

// SellerShipping combines the shipping zones of all of a seller's stalls,
// falling back to the fixed default zones when there are none.
func SellerShipping(stalls map[string][]Stall, pubkey string) []ShippingZone {
	var zones []ShippingZone
	for _, stall := range stalls[pubkey] {
		zones = append(zones, stall.Shipping...)
	}
	if len(zones) == 0 {
		return DefaultShippingZones
	}
	return zones
}

// SellerCurrency is the currency of the seller's first stall. With no stall
// the default zones apply, and their costs are in the reference fiat.
func SellerCurrency(stalls map[string][]Stall, pubkey string) string {
	if list := stalls[pubkey]; len(list) > 0 {
		if c := list[0].Currency; c != "" {
			return c
		}
		return "sats"
	}
	return "GBP"
}
