package config

import (
	"os"
	"strings"
)

type Config struct {
	HTTPAddr     string
	RedisAddr    string
	KafkaBrokers []string
	Relays       []string
	ServiceName  string

	// Price oracle endpoints, both sources overridable.
	KrakenURL      string
	CoinbaseGBPURL string
	CoinbaseUSDURL string
	CoinbaseEURURL string

	// Pubkeys whose listings are shown on the storefront.
	SellerWhitelist []string
}

// StorePubkey is the storefront's own identity; also the default whitelist.
const StorePubkey = "d887f1a249412f06d7c043d70aca17d326ba0d26ddfa1793d7bab5a141737412"

var defaultRelays = []string{
	"wss://relay.damus.io",
	"wss://relay.nostr.band",
	"wss://nos.lol",
	"wss://relay.primal.net",
}

func Load() Config {
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8081"),
		RedisAddr:       getenv("REDIS_ADDR", "redis:6379"),
		KafkaBrokers:    splitCSV(getenv("KAFKA_BROKERS", "kafka:9092")),
		Relays:          splitCSVDefault(os.Getenv("RELAYS"), defaultRelays),
		ServiceName:     getenv("SERVICE_NAME", "market-api"),
		KrakenURL:       getenv("EXCHANGE_KRAKEN_URL", "https://api.kraken.com/0/public/Ticker?pair=XBTGBP"),
		CoinbaseGBPURL:  getenv("EXCHANGE_COINBASE_URL", "https://api.coinbase.com/v2/prices/BTC-GBP/spot"),
		CoinbaseUSDURL:  getenv("EXCHANGE_COINBASE_USD_URL", "https://api.coinbase.com/v2/prices/BTC-USD/spot"),
		CoinbaseEURURL:  getenv("EXCHANGE_COINBASE_EUR_URL", "https://api.coinbase.com/v2/prices/BTC-EUR/spot"),
		SellerWhitelist: splitCSVDefault(os.Getenv("SELLER_WHITELIST"), []string{StorePubkey}),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func splitCSVDefault(s string, def []string) []string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return splitCSV(s)
}
