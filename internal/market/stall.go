package market

import (
	"encoding/json"
	"log"
	"strconv"

	"github.com/gini3d/marketd/internal/nostr"
)

// DefaultShippingZones applies when a seller has no stall. This fallback is
// a domain rule, not presentation: the last zone matches everywhere. Costs
// are in the reference fiat currency.
var DefaultShippingZones = []ShippingZone{
	{ID: "uk", Name: "United Kingdom", Cost: 3.5, Regions: []string{"UK", "GB"}},
	{ID: "eu", Name: "Europe", Cost: 8.0, Regions: []string{"EU"}},
	{ID: "worldwide", Name: "Worldwide", Cost: 15.0, Regions: []string{"*"}},
}

type stallContent struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Currency    string          `json:"currency"`
	Shipping    []stallShipping `json:"shipping"`
}

type stallShipping struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Cost    json.RawMessage `json:"cost"`
	Regions []string        `json:"regions"`
}

// ParseStall decodes a kind-30017 stall event. Returns nil when the content
// is not the expected JSON shape or when the stall lacks both a name and an
// identifier. The d tag wins over the body's own id field.
func ParseStall(ev nostr.Event) *Stall {
	if ev.Kind != nostr.KindStall {
		return nil
	}

	var content stallContent
	if err := json.Unmarshal([]byte(ev.Content), &content); err != nil {
		return nil
	}

	id := ev.Tag("d")
	if id == "" {
		id = content.ID
	}
	if id == "" || content.Name == "" {
		return nil
	}

	currency := content.Currency
	if currency == "" {
		currency = "sats"
	}

	shipping := make([]ShippingZone, 0, len(content.Shipping))
	for _, z := range content.Shipping {
		if z.ID == "" {
			// Kept for display; checkout refuses to select a zone without an id.
			log.Printf("market: stall %s has shipping zone without id", id)
		}
		regions := z.Regions
		if regions == nil {
			regions = []string{}
		}
		shipping = append(shipping, ShippingZone{
			ID:      z.ID,
			Name:    z.Name,
			Cost:    coerceCost(z.Cost),
			Regions: regions,
		})
	}

	return &Stall{
		ID:          id,
		Pubkey:      ev.Pubkey,
		Name:        content.Name,
		Description: content.Description,
		Currency:    currency,
		Shipping:    shipping,
	}
}

// coerceCost accepts numeric or numeric-string costs; anything else is 0.
func coerceCost(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(s, 64); err == nil && n >= 0 {
			return n
		}
	}
	return 0
}
