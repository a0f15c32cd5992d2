package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// PriceSource returns a spot price for one currency pair.
type PriceSource interface {
	Rate(ctx context.Context) (float64, error)
}

func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// KrakenSource reads the last trade price from the Kraken public ticker.
type KrakenSource struct {
	URL    string
	Client *http.Client
}

type krakenTicker struct {
	Error  []string `json:"error"`
	Result map[string]struct {
		C []string `json:"c"` // close price [price, lot volume]
	} `json:"result"`
}

func (s *KrakenSource) Rate(ctx context.Context) (float64, error) {
	var body krakenTicker
	if err := getJSON(ctx, httpClient(s.Client), s.URL, &body); err != nil {
		return 0, err
	}
	if len(body.Error) > 0 {
		return 0, fmt.Errorf("kraken: %s", body.Error[0])
	}
	for _, ticker := range body.Result {
		if len(ticker.C) > 0 {
			return strconv.ParseFloat(ticker.C[0], 64)
		}
	}
	return 0, errors.New("kraken: empty ticker result")
}

// CoinbaseSource reads a spot price from the Coinbase public price API.
type CoinbaseSource struct {
	URL    string
	Client *http.Client
}

type coinbaseSpot struct {
	Data struct {
		Base     string `json:"base"`
		Currency string `json:"currency"`
		Amount   string `json:"amount"`
	} `json:"data"`
}

func (s *CoinbaseSource) Rate(ctx context.Context) (float64, error) {
	var body coinbaseSpot
	if err := getJSON(ctx, httpClient(s.Client), s.URL, &body); err != nil {
		return 0, err
	}
	if body.Data.Amount == "" {
		return 0, errors.New("coinbase: empty amount")
	}
	return strconv.ParseFloat(body.Data.Amount, 64)
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
