package market

import (
	"testing"

	"github.com/gini3d/marketd/internal/nostr"
	"github.com/stretchr/testify/require"
)

func stallEvent(content string, tags [][]string) nostr.Event {
	return nostr.Event{
		ID:      "stall-ev",
		Pubkey:  testSellerPubkey,
		Kind:    nostr.KindStall,
		Tags:    tags,
		Content: content,
	}
}

func TestParseStall(t *testing.T) {
	content := `{
		"id": "body-id",
		"name": "Gini3D Shop",
		"description": "prints",
		"currency": "GBP",
		"shipping": [
			{"id": "uk", "name": "United Kingdom", "cost": 3.5, "regions": ["UK", "GB"]},
			{"id": "ww", "name": "Worldwide", "cost": "15", "regions": ["*"]}
		]
	}`
	s := ParseStall(stallEvent(content, [][]string{{"d", "tag-id"}}))
	require.NotNil(t, s)
	require.Equal(t, "tag-id", s.ID, "d tag takes priority over the body id")
	require.Equal(t, "Gini3D Shop", s.Name)
	require.Equal(t, "GBP", s.Currency)
	require.Len(t, s.Shipping, 2)
	require.Equal(t, 3.5, s.Shipping[0].Cost)
	require.Equal(t, 15.0, s.Shipping[1].Cost, "string cost is coerced")
	require.Equal(t, []string{"*"}, s.Shipping[1].Regions)
}

func TestParseStallBodyIDFallback(t *testing.T) {
	s := ParseStall(stallEvent(`{"id": "body-id", "name": "Shop"}`, nil))
	require.NotNil(t, s)
	require.Equal(t, "body-id", s.ID)
	require.Equal(t, "sats", s.Currency)
	require.Empty(t, s.Shipping)
}

func TestParseStallRejects(t *testing.T) {
	t.Run("wrong kind", func(t *testing.T) {
		ev := stallEvent(`{"id": "x", "name": "Shop"}`, nil)
		ev.Kind = nostr.KindClassifiedListing
		require.Nil(t, ParseStall(ev))
	})
	t.Run("malformed json", func(t *testing.T) {
		require.Nil(t, ParseStall(stallEvent(`not json`, nil)))
	})
	t.Run("missing name", func(t *testing.T) {
		require.Nil(t, ParseStall(stallEvent(`{"id": "x"}`, nil)))
	})
	t.Run("missing id", func(t *testing.T) {
		require.Nil(t, ParseStall(stallEvent(`{"name": "Shop"}`, nil)))
	})
}

func TestParseStallCostCoercion(t *testing.T) {
	content := `{"id": "x", "name": "Shop", "shipping": [
		{"id": "a", "cost": -2, "regions": []},
		{"id": "b", "cost": "oops", "regions": []},
		{"id": "c", "regions": []}
	]}`
	s := ParseStall(stallEvent(content, nil))
	require.NotNil(t, s)
	for _, z := range s.Shipping {
		require.Equal(t, 0.0, z.Cost)
	}
}

func TestParseStallKeepsZoneWithoutID(t *testing.T) {
	content := `{"id": "x", "name": "Shop", "shipping": [
		{"name": "Mystery", "cost": 1, "regions": ["*"]}
	]}`
	s := ParseStall(stallEvent(content, nil))
	require.NotNil(t, s)
	require.Len(t, s.Shipping, 1)
	require.Empty(t, s.Shipping[0].ID)
}

func TestDefaultShippingZones(t *testing.T) {
	require.Len(t, DefaultShippingZones, 3)
	last := DefaultShippingZones[len(DefaultShippingZones)-1]
	require.Equal(t, []string{"*"}, last.Regions, "catch-all zone must come last")
	for i := 1; i < len(DefaultShippingZones); i++ {
		require.Less(t, DefaultShippingZones[i-1].Cost, DefaultShippingZones[i].Cost)
	}
}
