package rates

import (
	"context"
	"log"
	"strings"

	"github.com/shopspring/decimal"
)

var satsPerBTC = decimal.NewFromInt(100_000_000)

// Convert turns an (amount, currency) pair into integer sats using the given
// snapshot. Rounding is always to the nearest sat, never truncation.
// Unrecognized currency codes warn and are treated as USD; callers never
// crash on a strange currency string.
func Convert(amount decimal.Decimal, currency string, r ExchangeRates) int64 {
	switch strings.ToUpper(currency) {
	case "SATS", "SAT":
		return amount.Round(0).IntPart()
	case "BTC":
		return amount.Mul(satsPerBTC).Round(0).IntPart()
	case "GBP", "£":
		return fiatToSats(amount, r.BTCGBP)
	case "USD", "$":
		return fiatToSats(amount, r.BTCUSD)
	case "EUR", "€":
		return fiatToSats(amount, r.BTCEUR)
	default:
		log.Printf("rates: unknown currency %q, defaulting to USD", currency)
		return fiatToSats(amount, r.BTCUSD)
	}
}

func fiatToSats(amount decimal.Decimal, btcPrice float64) int64 {
	if btcPrice <= 0 {
		return 0
	}
	rate := decimal.NewFromFloat(btcPrice)
	return amount.Div(rate).Mul(satsPerBTC).Round(0).IntPart()
}

// ConvertToSats converts against current rates, fetching them when the cache
// is stale. The rate fetch degrading to fallbacks means this never fails.
func (s *Service) ConvertToSats(ctx context.Context, amount decimal.Decimal, currency string) int64 {
	return Convert(amount, currency, s.GetRates(ctx))
}
