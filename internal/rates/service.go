package rates

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ExchangeRates is a snapshot of BTC prices per fiat unit. Mutated only by
// the Service; consumers treat it as a value.
type ExchangeRates struct {
	BTCGBP    float64   `json:"BTCGBP"` // 1 BTC = X GBP
	BTCUSD    float64   `json:"BTCUSD"`
	BTCEUR    float64   `json:"BTCEUR"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Last-resort constants, used only when every source fails and no cached
// snapshot exists.
var FallbackRates = ExchangeRates{
	BTCGBP: 80000,
	BTCUSD: 100000,
	BTCEUR: 90000,
}

// CacheWindow is how long a fetched snapshot stays fresh.
const CacheWindow = 5 * time.Minute

// Service fetches and caches exchange rates. The reference fiat (GBP) is
// priced from two independent sources queried concurrently: both succeeding
// averages them, one succeeding uses it, both failing degrades to the last
// cached GBP (fresh USD/EUR from the same fetch still apply) and, with no
// cache at all, to the fixed fallbacks. A failed fetch is never fatal to
// the caller.
type Service struct {
	Primary   PriceSource // Kraken BTC/GBP
	Secondary PriceSource // Coinbase BTC/GBP
	USDSource PriceSource
	EURSource PriceSource

	mu     sync.Mutex
	cached *ExchangeRates
	now    func() time.Time
}

func NewService(primary, secondary, usd, eur PriceSource) *Service {
	return &Service{
		Primary:   primary,
		Secondary: secondary,
		USDSource: usd,
		EURSource: eur,
		now:       time.Now,
	}
}

// GetRates returns the cached snapshot when fresh, otherwise refetches.
func (s *Service) GetRates(ctx context.Context) ExchangeRates {
	s.mu.Lock()
	if s.cached != nil && s.now().Sub(s.cached.UpdatedAt) < CacheWindow {
		r := *s.cached
		s.mu.Unlock()
		return r
	}
	s.mu.Unlock()

	primary, secondary, usd, eur := s.fetchAll(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	var gbp float64
	switch {
	case primary != nil && secondary != nil:
		gbp = (*primary + *secondary) / 2
	case primary != nil:
		gbp = *primary
	case secondary != nil:
		gbp = *secondary
	default:
		if s.cached != nil {
			// stale GBP is better than made up; fresh USD/EUR still land.
			// UpdatedAt stays stale so the next call retries the GBP sources.
			log.Printf("rates: all GBP sources failed, serving stale GBP")
			snap := *s.cached
			snap.BTCUSD = orFallback(usd, snap.BTCUSD)
			snap.BTCEUR = orFallback(eur, snap.BTCEUR)
			s.cached = &snap
			return snap
		}
		log.Printf("rates: all GBP sources failed with no cache, using fallback rates")
		gbp = FallbackRates.BTCGBP
	}

	snapshot := ExchangeRates{
		BTCGBP:    gbp,
		BTCUSD:    orFallback(usd, FallbackRates.BTCUSD),
		BTCEUR:    orFallback(eur, FallbackRates.BTCEUR),
		UpdatedAt: s.now(),
	}
	s.cached = &snapshot
	return snapshot
}

// Snapshot returns the current cache without any network call, or the
// fallbacks when nothing has been fetched yet.
func (s *Service) Snapshot() ExchangeRates {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return *s.cached
	}
	return FallbackRates
}

// fetchAll queries all sources concurrently; individual failures are logged
// and reported as nil so the slow or broken source never blocks the rest.
func (s *Service) fetchAll(ctx context.Context) (primary, secondary, usd, eur *float64) {
	fetch := func(src PriceSource, name string, out **float64) func() error {
		return func() error {
			if src == nil {
				return nil
			}
			rate, err := src.Rate(ctx)
			if err != nil {
				log.Printf("rates: %s: %v", name, err)
				return nil
			}
			*out = &rate
			return nil
		}
	}
	var g errgroup.Group
	g.Go(fetch(s.Primary, "primary GBP source", &primary))
	g.Go(fetch(s.Secondary, "secondary GBP source", &secondary))
	g.Go(fetch(s.USDSource, "USD source", &usd))
	g.Go(fetch(s.EURSource, "EUR source", &eur))
	_ = g.Wait()
	return primary, secondary, usd, eur
}

func orFallback(v *float64, def float64) float64 {
	if v != nil {
		return *v
	}
	return def
}
