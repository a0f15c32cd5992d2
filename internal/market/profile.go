package market

import (
	"encoding/json"

	"github.com/gini3d/marketd/internal/nostr"
)

type profileContent struct {
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	DisplayName2 string `json:"displayName"`
	Picture      string `json:"picture"`
	Banner       string `json:"banner"`
	About        string `json:"about"`
	NIP05        string `json:"nip05"`
}

// ParseProfile decodes a kind-0 metadata event for the given pubkey. Bad
// content degrades to the bare-key profile rather than failing.
func ParseProfile(ev nostr.Event, pubkey string) SellerProfile {
	var content profileContent
	if err := json.Unmarshal([]byte(ev.Content), &content); err != nil {
		return BareProfile(pubkey)
	}
	display := content.DisplayName
	if display == "" {
		display = content.DisplayName2
	}
	return SellerProfile{
		Pubkey:      pubkey,
		Name:        content.Name,
		DisplayName: display,
		Picture:     content.Picture,
		Banner:      content.Banner,
		About:       content.About,
		NIP05:       content.NIP05,
		Npub:        npubOrKey(pubkey),
	}
}

// BareProfile is the profile used when no kind-0 event can be found: just
// the key and its display encoding.
func BareProfile(pubkey string) SellerProfile {
	return SellerProfile{Pubkey: pubkey, Npub: npubOrKey(pubkey)}
}

func npubOrKey(pubkey string) string {
	npub, err := nostr.EncodePublicKey(pubkey)
	if err != nil {
		return pubkey
	}
	return npub
}
