package market

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gini3d/marketd/internal/nostr"
	"github.com/stretchr/testify/require"
)

const testSellerPubkey = "d887f1a249412f06d7c043d70aca17d326ba0d26ddfa1793d7bab5a141737412"

var testRelays = []string{"wss://relay.damus.io", "wss://relay.nostr.band"}

func listingEvent(tags [][]string) nostr.Event {
	return nostr.Event{
		ID:        "ev1",
		Pubkey:    testSellerPubkey,
		CreatedAt: 1700000000,
		Kind:      nostr.KindClassifiedListing,
		Tags:      tags,
		Content:   "full description of the product",
		Sig:       "sig",
	}
}

func TestParseListing(t *testing.T) {
	ev := listingEvent([][]string{
		{"d", "print-axolotl"},
		{"title", "Axolotl Buddy"},
		{"price", "12.50", "GBP"},
		{"image", "https://cdn.example/a.png"},
		{"thumb", "https://cdn.example/t.png"},
		{"summary", "A cute axolotl print"},
		{"location", "UK"},
		{"t", "3dprint"},
		{"t", "cute"},
	})

	p := ParseListing(ev, testRelays)
	require.NotNil(t, p)
	require.Equal(t, "ev1", p.ID)
	require.Equal(t, "Axolotl Buddy", p.Title)
	require.Equal(t, "A cute axolotl print", p.Summary)
	require.Equal(t, "UK", p.Location)
	require.Equal(t, testSellerPubkey, p.Pubkey)
	require.Equal(t, int64(1700000000), p.PublishedAt)
	require.Equal(t, Price{Amount: "12.50", Currency: "GBP"}, p.Price)
	require.Equal(t, []string{"https://cdn.example/a.png", "https://cdn.example/t.png"}, p.Images)
	require.Equal(t, []string{"3dprint", "cute"}, p.Tags)

	ptr, err := nostr.DecodeEntity(p.Naddr)
	require.NoError(t, err)
	require.Equal(t, testSellerPubkey, ptr.PublicKey)
	require.Equal(t, nostr.KindClassifiedListing, ptr.Kind)
	require.Equal(t, "print-axolotl", ptr.Identifier)
}

func TestParseListingRejects(t *testing.T) {
	t.Run("wrong kind", func(t *testing.T) {
		ev := listingEvent([][]string{{"d", "x"}, {"title", "X"}})
		ev.Kind = nostr.KindStall
		require.Nil(t, ParseListing(ev, testRelays))
	})
	t.Run("missing identifier", func(t *testing.T) {
		ev := listingEvent([][]string{{"title", "X"}})
		require.Nil(t, ParseListing(ev, testRelays))
	})
	t.Run("missing title", func(t *testing.T) {
		ev := listingEvent([][]string{{"d", "x"}})
		require.Nil(t, ParseListing(ev, testRelays))
	})
}

func TestParseListingNameFallback(t *testing.T) {
	ev := listingEvent([][]string{{"d", "x"}, {"name", "Named Product"}})
	p := ParseListing(ev, testRelays)
	require.NotNil(t, p)
	require.Equal(t, "Named Product", p.Title)
}

func TestParseListingPriceDefaults(t *testing.T) {
	t.Run("no price tag", func(t *testing.T) {
		ev := listingEvent([][]string{{"d", "x"}, {"title", "X"}})
		p := ParseListing(ev, testRelays)
		require.Equal(t, Price{Amount: "0", Currency: "sats"}, p.Price)
	})
	t.Run("non numeric amount", func(t *testing.T) {
		ev := listingEvent([][]string{{"d", "x"}, {"title", "X"}, {"price", "free", "GBP"}})
		p := ParseListing(ev, testRelays)
		require.Equal(t, "0", p.Price.Amount)
		require.Equal(t, "GBP", p.Price.Currency)
	})
	t.Run("frequency", func(t *testing.T) {
		ev := listingEvent([][]string{{"d", "x"}, {"title", "X"}, {"price", "5", "USD", "month"}})
		p := ParseListing(ev, testRelays)
		require.Equal(t, Price{Amount: "5", Currency: "USD", Frequency: "month"}, p.Price)
	})
}

func TestParseListingSummaryFallbacks(t *testing.T) {
	t.Run("description tag", func(t *testing.T) {
		ev := listingEvent([][]string{{"d", "x"}, {"title", "X"}, {"description", "from tag"}})
		p := ParseListing(ev, testRelays)
		require.Equal(t, "from tag", p.Summary)
	})
	t.Run("content truncated", func(t *testing.T) {
		ev := listingEvent([][]string{{"d", "x"}, {"title", "X"}})
		ev.Content = strings.Repeat("a", 300)
		p := ParseListing(ev, testRelays)
		require.Equal(t, strings.Repeat("a", 200), p.Summary)
	})
	t.Run("content truncated on a rune boundary", func(t *testing.T) {
		ev := listingEvent([][]string{{"d", "x"}, {"title", "X"}})
		ev.Content = strings.Repeat("a", 199) + "£漢字"
		p := ParseListing(ev, testRelays)
		require.True(t, utf8.ValidString(p.Summary))
		require.Equal(t, strings.Repeat("a", 199)+"£", p.Summary)
		require.Equal(t, 200, utf8.RuneCountInString(p.Summary))
	})
}

func TestParseListingLocationFallback(t *testing.T) {
	ev := listingEvent([][]string{{"d", "x"}, {"title", "X"}, {"g", "geohash-ish"}})
	p := ParseListing(ev, testRelays)
	require.Equal(t, "geohash-ish", p.Location)
}
