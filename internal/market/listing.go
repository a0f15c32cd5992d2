package market

import (
	"log"

	"github.com/shopspring/decimal"

	"github.com/gini3d/marketd/internal/nostr"
)

// ParseListing decodes a kind-30402 classified listing into a Product.
// Returns nil for anything that cannot become a valid product: wrong kind,
// missing d tag, missing title. One bad event never breaks a listing page,
// so there is no error return.
//
// relays feeds the naddr encoding; at most two hints are embedded.
func ParseListing(ev nostr.Event, relays []string) *Product {
	if ev.Kind != nostr.KindClassifiedListing {
		return nil
	}

	identifier := ev.Tag("d")
	title := ev.Tag("title")
	if title == "" {
		title = ev.Tag("name")
	}
	if identifier == "" || title == "" {
		return nil
	}

	// Price tag positions are the wire contract: amount, currency, frequency.
	price := Price{Amount: "0", Currency: "sats"}
	if t := ev.FindTag("price"); t != nil {
		if len(t) >= 2 && t[1] != "" {
			price.Amount = t[1]
		}
		if len(t) >= 3 && t[2] != "" {
			price.Currency = t[2]
		}
		if len(t) >= 4 {
			price.Frequency = t[3]
		}
		if d, err := decimal.NewFromString(price.Amount); err != nil || d.IsNegative() {
			log.Printf("market: listing %s has bad price amount %q, using 0", ev.ID, price.Amount)
			price.Amount = "0"
		}
	}

	var images []string
	for _, t := range ev.Tags {
		if len(t) >= 2 && (t[0] == "image" || t[0] == "thumb") {
			images = append(images, t[1])
		}
	}

	summary := ev.Tag("summary")
	if summary == "" {
		summary = ev.Tag("description")
	}
	if summary == "" {
		summary = truncate(ev.Content, 200)
	}

	location := ev.Tag("location")
	if location == "" {
		location = ev.Tag("g")
	}

	naddr, err := nostr.EncodeEntity(ev.Pubkey, nostr.KindClassifiedListing, identifier, relays)
	if err != nil {
		log.Printf("market: listing %s: naddr encode: %v", ev.ID, err)
		return nil
	}

	return &Product{
		ID:          ev.ID,
		Pubkey:      ev.Pubkey,
		Title:       title,
		Summary:     summary,
		Content:     ev.Content,
		Images:      images,
		Price:       price,
		Location:    location,
		PublishedAt: ev.CreatedAt,
		Naddr:       naddr,
		Tags:        ev.TagValues("t"),
	}
}

// truncate cuts after n characters, never mid-rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
