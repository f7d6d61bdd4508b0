// internal/infrastructure/database/redis/guest_cart.go
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hoodskool/hoodskool-backend/internal/domain/cart"
)

const (
	keyPrefix           = "hoodskool:cart:"
	guestCartVersion    = 1
	DefaultGuestCartTTL = 30 * 24 * time.Hour
)

// GuestCartKey returns the key holding a session's guest cart
func GuestCartKey(sessionID string) string {
	return keyPrefix + sessionID
}

// SyncedKey returns the key marking a session's guest cart as merged into userID's cart
func SyncedKey(sessionID, userID string) string {
	return fmt.Sprintf("%ssynced:%s:%s", keyPrefix, sessionID, userID)
}

// guestCartPayload is the persisted shape; only the item list is stored
type guestCartPayload struct {
	Version int             `json:"version"`
	Items   []cart.CartItem `json:"items"`
}

// GuestCartStorage implements cart.LocalStorage for one storefront session
type GuestCartStorage struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

var _ cart.LocalStorage = (*GuestCartStorage)(nil)

// NewGuestCartStorage creates guest cart storage for sessionID
func NewGuestCartStorage(client *redis.Client, sessionID string, ttl time.Duration) *GuestCartStorage {
	if ttl <= 0 {
		ttl = DefaultGuestCartTTL
	}
	return &GuestCartStorage{
		client: client,
		key:    GuestCartKey(sessionID),
		ttl:    ttl,
	}
}

// Load returns the stored items; a missing key is an empty cart
func (s *GuestCartStorage) Load(ctx context.Context) ([]cart.CartItem, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []cart.CartItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read guest cart: %w", err)
	}

	return decodeGuestCart(data)
}

// Save overwrites the stored items and refreshes the TTL
func (s *GuestCartStorage) Save(ctx context.Context, items []cart.CartItem) error {
	data, err := encodeGuestCart(items)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write guest cart: %w", err)
	}
	return nil
}

// Clear deletes the stored cart
func (s *GuestCartStorage) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func encodeGuestCart(items []cart.CartItem) ([]byte, error) {
	if items == nil {
		items = []cart.CartItem{}
	}
	data, err := json.Marshal(guestCartPayload{Version: guestCartVersion, Items: items})
	if err != nil {
		return nil, fmt.Errorf("failed to encode guest cart: %w", err)
	}
	return data, nil
}

func decodeGuestCart(data []byte) ([]cart.CartItem, error) {
	var payload guestCartPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode guest cart: %w", err)
	}
	if payload.Items == nil {
		return []cart.CartItem{}, nil
	}
	return payload.Items, nil
}
