package nostr

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// NIP-19 bech32 encodings. naddr strings regularly exceed the 90 character
// BIP-173 limit, so decoding goes through DecodeNoLimit.

// naddr embeds at most this many relay hints; more wastes encoding space.
const maxNaddrRelays = 2

// TLV types inside an naddr payload.
const (
	tlvSpecial = 0
	tlvRelay   = 1
	tlvAuthor  = 2
	tlvKind    = 3
)

// EntityPointer is the decoded form of an naddr.
type EntityPointer struct {
	PublicKey  string
	Kind       int
	Identifier string
	Relays     []string
}

// EncodePublicKey encodes a hex pubkey as an npub string.
func EncodePublicKey(pubkey string) (string, error) {
	return encodeKey("npub", pubkey)
}

// DecodePublicKey decodes an npub back to a hex pubkey.
func DecodePublicKey(npub string) (string, error) {
	return decodeKey("npub", npub)
}

// EncodePrivateKey encodes a hex secret key as an nsec string.
func EncodePrivateKey(seckey string) (string, error) {
	return encodeKey("nsec", seckey)
}

// DecodePrivateKey decodes an nsec back to a hex secret key.
func DecodePrivateKey(nsec string) (string, error) {
	return decodeKey("nsec", nsec)
}

// EncodeEntity encodes (pubkey, kind, identifier) plus up to two relay hints
// as a stable naddr address.
func EncodeEntity(pubkey string, kind int, identifier string, relays []string) (string, error) {
	author, err := hex.DecodeString(pubkey)
	if err != nil || len(author) != 32 {
		return "", fmt.Errorf("invalid pubkey %q", pubkey)
	}
	if len(relays) > maxNaddrRelays {
		relays = relays[:maxNaddrRelays]
	}

	var payload []byte
	payload = appendTLV(payload, tlvSpecial, []byte(identifier))
	for _, r := range relays {
		payload = appendTLV(payload, tlvRelay, []byte(r))
	}
	payload = appendTLV(payload, tlvAuthor, author)
	kindBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(kindBuf, uint32(kind))
	payload = appendTLV(payload, tlvKind, kindBuf)

	conv, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode("naddr", conv)
}

// DecodeEntity decodes an naddr back to the same (pubkey, kind, identifier)
// triple plus any embedded relay hints.
func DecodeEntity(naddr string) (EntityPointer, error) {
	hrp, data, err := bech32.DecodeNoLimit(naddr)
	if err != nil {
		return EntityPointer{}, err
	}
	if hrp != "naddr" {
		return EntityPointer{}, fmt.Errorf("not an naddr: %q", hrp)
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return EntityPointer{}, err
	}

	var p EntityPointer
	sawAuthor, sawKind := false, false
	for len(payload) >= 2 {
		typ, length := payload[0], int(payload[1])
		payload = payload[2:]
		if length > len(payload) {
			return EntityPointer{}, errors.New("naddr: truncated TLV")
		}
		value := payload[:length]
		payload = payload[length:]

		switch typ {
		case tlvSpecial:
			p.Identifier = string(value)
		case tlvRelay:
			p.Relays = append(p.Relays, string(value))
		case tlvAuthor:
			if len(value) != 32 {
				return EntityPointer{}, errors.New("naddr: bad author length")
			}
			p.PublicKey = hex.EncodeToString(value)
			sawAuthor = true
		case tlvKind:
			if len(value) != 4 {
				return EntityPointer{}, errors.New("naddr: bad kind length")
			}
			p.Kind = int(binary.BigEndian.Uint32(value))
			sawKind = true
		}
	}
	if !sawAuthor || !sawKind {
		return EntityPointer{}, errors.New("naddr: missing author or kind")
	}
	return p, nil
}

// ShortenPubkey renders a pubkey as an abbreviated npub for display.
func ShortenPubkey(pubkey string, length int) string {
	npub, err := EncodePublicKey(pubkey)
	if err != nil {
		npub = pubkey
	}
	if len(npub) <= length*2+3 {
		return npub
	}
	return npub[:length] + "..." + npub[len(npub)-length:]
}

func encodeKey(hrp, key string) (string, error) {
	raw, err := hex.DecodeString(key)
	if err != nil || len(raw) != 32 {
		return "", fmt.Errorf("invalid %s key %q", hrp, key)
	}
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(hrp, conv)
}

func decodeKey(wantHRP, s string) (string, error) {
	hrp, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return "", err
	}
	if hrp != wantHRP {
		return "", fmt.Errorf("expected %s, got %s", wantHRP, hrp)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", err
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("%s: bad key length %d", wantHRP, len(raw))
	}
	return hex.EncodeToString(raw), nil
}

func appendTLV(buf []byte, typ byte, value []byte) []byte {
	buf = append(buf, typ, byte(len(value)))
	return append(buf, value...)
}
