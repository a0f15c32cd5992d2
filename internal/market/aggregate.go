package market

import (
	"log"

	"github.com/shopspring/decimal"

	"github.com/gini3d/marketd/internal/nostr"
)

// ConvertFunc turns an (amount, currency) pair into integer sats.
type ConvertFunc func(amount decimal.Decimal, currency string) int64

// GroupBySeller splits cart items into per-seller orders, preserving
// first-seen seller order. Each distinct product line gets its per-unit
// price converted to sats once; subtotals accumulate satsAmount × quantity.
//
// ShippingSats is left at zero here: shipping is chosen per seller at
// checkout and converted there. TotalSats therefore equals the subtotal and
// is a display estimate only.
func GroupBySeller(items []CartItem, convert ConvertFunc, metadata map[string]SellerMeta) []SellerOrder {
	index := make(map[string]int)
	var orders []SellerOrder

	for _, item := range items {
		pubkey := item.Product.Pubkey
		i, ok := index[pubkey]
		if !ok {
			i = len(orders)
			index[pubkey] = i
			orders = append(orders, SellerOrder{
				SellerPubkey:  pubkey,
				SellerName:    resolveSellerName(item.Product, metadata),
				SellerPicture: sellerPicture(item.Product),
			})
		}

		sats := lineSats(item.Product, convert)
		orders[i].Items = append(orders[i].Items, OrderLine{
			Product:    item.Product,
			Quantity:   item.Quantity,
			SatsAmount: sats,
		})
		orders[i].SubtotalSats += sats * int64(item.Quantity)
		orders[i].TotalSats = orders[i].SubtotalSats + orders[i].ShippingSats
	}
	return orders
}

// CalculateGrandTotal sums subtotal, shipping and total across all orders.
func CalculateGrandTotal(orders []SellerOrder) GrandTotal {
	var g GrandTotal
	for _, o := range orders {
		g.SubtotalSats += o.SubtotalSats
		g.ShippingSats += o.ShippingSats
		g.TotalSats += o.TotalSats
	}
	return g
}

func lineSats(p Product, convert ConvertFunc) int64 {
	amount, err := decimal.NewFromString(p.Price.Amount)
	if err != nil {
		log.Printf("market: product %s has unparseable amount %q", p.ID, p.Price.Amount)
		return 0
	}
	return convert(amount, p.Price.Currency)
}

// resolveSellerName applies the fixed resolution order: profile display name,
// profile name, metadata table, truncated-key placeholder. Richer sources
// always win.
func resolveSellerName(p Product, metadata map[string]SellerMeta) string {
	if p.Seller != nil {
		if p.Seller.DisplayName != "" {
			return p.Seller.DisplayName
		}
		if p.Seller.Name != "" {
			return p.Seller.Name
		}
	}
	if meta, ok := metadata[p.Pubkey]; ok && meta.Name != "" {
		return meta.Name
	}
	return nostr.ShortenPubkey(p.Pubkey, 8)
}

func sellerPicture(p Product) string {
	if p.Seller != nil {
		return p.Seller.Picture
	}
	return ""
}
