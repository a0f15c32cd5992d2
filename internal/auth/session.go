package auth

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/gini3d/marketd/internal/market"
	"github.com/gini3d/marketd/internal/nostr"
)

// Signer is the identity provider surface: it supplies the public key and
// signs events on the user's behalf. Typically backed by a remote signer;
// tests use a stub.
type Signer interface {
	GetPublicKey(ctx context.Context) (string, error)
	Sign(ctx context.Context, ev *nostr.Event) error
}

// Storage persists the session; satisfied by the same implementations as the
// cart storage.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrNoSigner = errors.New("no signer configured")

// Service holds the authenticated user's profile. Login failures surface as
// errors for the caller to display; they never corrupt existing state.
type Service struct {
	client  nostr.Client
	storage Storage
	key     string
	signer  Signer

	mu   sync.RWMutex
	user *market.SellerProfile
}

func NewService(client nostr.Client, storage Storage, storageKey string, signer Signer) *Service {
	return &Service{client: client, storage: storage, key: storageKey, signer: signer}
}

// Restore loads a persisted session. Corrupt values are deleted and treated
// as logged out.
func (s *Service) Restore(ctx context.Context) {
	data, err := s.storage.Load(ctx, s.key)
	if err != nil {
		return
	}
	var profile market.SellerProfile
	if err := json.Unmarshal(data, &profile); err != nil || profile.Pubkey == "" {
		log.Printf("auth: discarding corrupt stored session")
		_ = s.storage.Delete(ctx, s.key)
		return
	}
	s.mu.Lock()
	s.user = &profile
	s.mu.Unlock()
}

// Login authenticates through the configured signer.
func (s *Service) Login(ctx context.Context) (*market.SellerProfile, error) {
	if s.signer == nil {
		return nil, ErrNoSigner
	}
	pubkey, err := s.signer.GetPublicKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("get public key: %w", err)
	}
	return s.establish(ctx, pubkey)
}

// LoginWithKey authenticates with a raw secret key, nsec or hex. The key is
// used only to derive the public key and is never stored.
func (s *Service) LoginWithKey(ctx context.Context, key string) (*market.SellerProfile, error) {
	pubkey, err := PublicKeyFromSecret(key)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, pubkey)
}

func (s *Service) Logout(ctx context.Context) {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	_ = s.storage.Delete(ctx, s.key)
}

// User returns the current profile, or nil when logged out.
func (s *Service) User() *market.SellerProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Service) establish(ctx context.Context, pubkey string) (*market.SellerProfile, error) {
	profile := s.fetchProfile(ctx, pubkey)

	s.mu.Lock()
	s.user = &profile
	s.mu.Unlock()

	if data, err := json.Marshal(profile); err == nil {
		if err := s.storage.Save(ctx, s.key, data); err != nil {
			log.Printf("auth: persist session: %v", err)
		}
	}
	u := profile
	return &u, nil
}

// fetchProfile looks the profile up on the relays, degrading to the bare-key
// profile when the lookup fails or finds nothing.
func (s *Service) fetchProfile(ctx context.Context, pubkey string) market.SellerProfile {
	events, err := s.client.FetchEvents(ctx, nostr.Filter{
		Kinds:   []int{nostr.KindProfileMetadata},
		Authors: []string{pubkey},
		Limit:   1,
	})
	if err != nil || len(events) == 0 {
		if err != nil {
			log.Printf("auth: profile fetch: %v", err)
		}
		return market.BareProfile(pubkey)
	}
	return market.ParseProfile(events[0], pubkey)
}

// PublicKeyFromSecret derives the x-only public key from an nsec or hex
// secret key.
func PublicKeyFromSecret(key string) (string, error) {
	keyHex := strings.TrimSpace(key)
	if strings.HasPrefix(keyHex, "nsec1") {
		decoded, err := nostr.DecodePrivateKey(keyHex)
		if err != nil {
			return "", fmt.Errorf("invalid nsec: %w", err)
		}
		keyHex = decoded
	}
	raw, err := hex.DecodeString(keyHex)
	if err != nil || len(raw) != 32 {
		return "", errors.New("invalid secret key")
	}
	priv := secp256k1.PrivKeyFromBytes(raw)
	// x-only serialization: drop the parity byte
	return hex.EncodeToString(priv.PubKey().SerializeCompressed()[1:]), nil
}
