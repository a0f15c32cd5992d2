package market

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const otherSellerPubkey = "211f325b5396968ac0c79b7c0a030d768206d32ac61f93f143de112b859bd46f"

// fixedConvert mirrors the production conversion at a BTC/GBP rate of 80000.
func fixedConvert(amount decimal.Decimal, currency string) int64 {
	switch currency {
	case "sats", "SATS":
		return amount.Round(0).IntPart()
	case "GBP":
		return amount.Div(decimal.NewFromInt(80000)).
			Mul(decimal.NewFromInt(100_000_000)).Round(0).IntPart()
	default:
		return 0
	}
}

func cartFixture() []CartItem {
	withSeller := Product{
		ID:     "p1",
		Pubkey: testSellerPubkey,
		Title:  "Axolotl",
		Price:  Price{Amount: "1000", Currency: "sats"},
		Seller: &SellerProfile{Pubkey: testSellerPubkey, DisplayName: "Gini3D Workshop", Picture: "https://x/pic.png"},
	}
	sameSeller := Product{
		ID:     "p2",
		Pubkey: testSellerPubkey,
		Title:  "Frog",
		Price:  Price{Amount: "500", Currency: "sats"},
		Seller: withSeller.Seller,
	}
	fiat := Product{
		ID:     "p3",
		Pubkey: otherSellerPubkey,
		Title:  "Seed Plate",
		Price:  Price{Amount: "100", Currency: "GBP"},
	}
	return []CartItem{
		{Product: withSeller, Quantity: 2},
		{Product: fiat, Quantity: 1},
		{Product: sameSeller, Quantity: 1},
	}
}

func TestGroupBySeller(t *testing.T) {
	orders := GroupBySeller(cartFixture(), fixedConvert, SellerMetadata)
	require.Len(t, orders, 2)

	// first-seen seller order
	require.Equal(t, testSellerPubkey, orders[0].SellerPubkey)
	require.Equal(t, otherSellerPubkey, orders[1].SellerPubkey)

	require.Len(t, orders[0].Items, 2)
	require.Equal(t, int64(1000), orders[0].Items[0].SatsAmount)
	require.Equal(t, int64(2500), orders[0].SubtotalSats)
	require.Equal(t, int64(0), orders[0].ShippingSats)
	require.Equal(t, int64(2500), orders[0].TotalSats)
	require.Equal(t, "Gini3D Workshop", orders[0].SellerName)
	require.Equal(t, "https://x/pic.png", orders[0].SellerPicture)

	// 100 GBP at 80000 GBP/BTC
	require.Equal(t, int64(125_000), orders[1].SubtotalSats)
	require.Equal(t, "Robotechy", orders[1].SellerName, "metadata fallback when no profile")
}

func TestGroupBySellerUnknownSellerName(t *testing.T) {
	unknown := "a3f1c2d4e5b6978012345678901234567890123456789012345678901234abcd"
	items := []CartItem{{
		Product:  Product{ID: "p", Pubkey: unknown, Price: Price{Amount: "1", Currency: "sats"}},
		Quantity: 1,
	}}
	orders := GroupBySeller(items, fixedConvert, SellerMetadata)
	require.Len(t, orders, 1)
	require.True(t, strings.HasPrefix(orders[0].SellerName, "npub1"))
	require.Contains(t, orders[0].SellerName, "...")
}

func TestGroupBySellerNameResolutionOrder(t *testing.T) {
	p := Product{
		ID:     "p",
		Pubkey: otherSellerPubkey,
		Price:  Price{Amount: "1", Currency: "sats"},
		Seller: &SellerProfile{Pubkey: otherSellerPubkey, Name: "robo"},
	}
	orders := GroupBySeller([]CartItem{{Product: p, Quantity: 1}}, fixedConvert, SellerMetadata)
	require.Equal(t, "robo", orders[0].SellerName, "profile name beats metadata")
}

func TestGroupBySellerBadAmount(t *testing.T) {
	items := []CartItem{{
		Product:  Product{ID: "p", Pubkey: testSellerPubkey, Price: Price{Amount: "n/a", Currency: "sats"}},
		Quantity: 3,
	}}
	orders := GroupBySeller(items, fixedConvert, SellerMetadata)
	require.Equal(t, int64(0), orders[0].SubtotalSats)
}

func TestGroupBySellerEmpty(t *testing.T) {
	require.Empty(t, GroupBySeller(nil, fixedConvert, SellerMetadata))
}

func TestCalculateGrandTotal(t *testing.T) {
	orders := []SellerOrder{
		{SubtotalSats: 2500, ShippingSats: 4375, TotalSats: 6875},
		{SubtotalSats: 125_000, ShippingSats: 18_750, TotalSats: 143_750},
	}
	got := CalculateGrandTotal(orders)
	require.Equal(t, GrandTotal{SubtotalSats: 127_500, ShippingSats: 23_125, TotalSats: 150_625}, got)
}
