package market

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gini3d/marketd/internal/nostr"
)

var ErrProductNotFound = errors.New("product not found")

const defaultListingLimit = 100

// ProductService fetches and parses classified listings. The relay client is
// injected; there is no cancellation of in-flight queries beyond the ctx,
// and a stale response may overwrite fresher caller state (last-write-wins,
// a known gap carried over from the observed behavior).
type ProductService struct {
	Client nostr.Client
	Relays []string

	// Whitelist restricts the storefront to these sellers when a query
	// names no sellers of its own.
	Whitelist []string
}

// ListingQuery narrows ListProducts.
type ListingQuery struct {
	Sellers []string
	Tags    []string
	Limit   int
	Search  string
}

// ListProducts returns parsed products, newest first. Unparseable events are
// skipped, never fatal.
func (s *ProductService) ListProducts(ctx context.Context, q ListingQuery) ([]Product, error) {
	filter := nostr.Filter{
		Kinds: []int{nostr.KindClassifiedListing},
		Limit: q.Limit,
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListingLimit
	}
	if len(q.Sellers) > 0 {
		filter.Authors = q.Sellers
	} else if len(s.Whitelist) > 0 {
		filter.Authors = s.Whitelist
	}
	if len(q.Tags) > 0 {
		filter.Hashtags = q.Tags
	}

	events, err := s.Client.FetchEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch listings: %w", err)
	}

	products := make([]Product, 0, len(events))
	for _, ev := range events {
		if p := ParseListing(ev, s.Relays); p != nil {
			products = append(products, *p)
		}
	}
	SortByDate(products)
	if q.Search != "" {
		products = FilterBySearch(products, q.Search)
	}
	return products, nil
}

// GetProduct resolves an naddr to a product, fetching the listing and the
// seller profile concurrently. A failed profile lookup enriches with the
// bare key instead of failing the product.
func (s *ProductService) GetProduct(ctx context.Context, naddr string) (*Product, error) {
	ptr, err := nostr.DecodeEntity(naddr)
	if err != nil {
		return nil, fmt.Errorf("invalid naddr: %w", err)
	}

	var (
		listingEvents []nostr.Event
		profileEvents []nostr.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		listingEvents, err = s.Client.FetchEvents(gctx, nostr.Filter{
			Kinds:       []int{ptr.Kind},
			Authors:     []string{ptr.PublicKey},
			Identifiers: []string{ptr.Identifier},
			Limit:       1,
		})
		return err
	})
	g.Go(func() error {
		evs, err := s.Client.FetchEvents(gctx, nostr.Filter{
			Kinds:   []int{nostr.KindProfileMetadata},
			Authors: []string{ptr.PublicKey},
			Limit:   1,
		})
		if err != nil {
			// partial success: the product does not need the profile
			log.Printf("market: profile fetch for %s: %v", ptr.PublicKey, err)
			return nil
		}
		profileEvents = evs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch product: %w", err)
	}
	if len(listingEvents) == 0 {
		return nil, ErrProductNotFound
	}

	product := ParseListing(listingEvents[0], s.Relays)
	if product == nil {
		return nil, ErrProductNotFound
	}

	seller := BareProfile(ptr.PublicKey)
	if len(profileEvents) > 0 {
		seller = ParseProfile(profileEvents[0], ptr.PublicKey)
	}
	product.Seller = &seller
	return product, nil
}

// FetchProfile looks up a seller's kind-0 metadata, degrading to the bare
// key profile on any failure.
func (s *ProductService) FetchProfile(ctx context.Context, pubkey string) SellerProfile {
	events, err := s.Client.FetchEvents(ctx, nostr.Filter{
		Kinds:   []int{nostr.KindProfileMetadata},
		Authors: []string{pubkey},
		Limit:   1,
	})
	if err != nil || len(events) == 0 {
		if err != nil {
			log.Printf("market: profile fetch for %s: %v", pubkey, err)
		}
		return BareProfile(pubkey)
	}
	return ParseProfile(events[0], pubkey)
}

// SortByDate orders products newest first, in place.
func SortByDate(products []Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].PublishedAt > products[j].PublishedAt
	})
}

// FilterBySearch keeps products whose title, summary or hashtags contain the
// term, case-insensitively.
func FilterBySearch(products []Product, term string) []Product {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return products
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Title), term) ||
			strings.Contains(strings.ToLower(p.Summary), term) ||
			tagsContain(p.Tags, term) {
			out = append(out, p)
		}
	}
	return out
}

func tagsContain(tags []string, term string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), term) {
			return true
		}
	}
	return false
}
