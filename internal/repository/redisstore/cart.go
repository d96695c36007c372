package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storefront-labs/storefront/internal/entity"
	"github.com/storefront-labs/storefront/internal/repository"
)

// cartStore keeps guest session carts in Redis, keyed by session token with
// a sliding TTL. This is the authoritative store for guest carts, not a
// cache in front of Postgres; a guest cart exists nowhere else until it is
// merged into a user cart at login.
type cartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStore creates the Redis-backed guest cart store.
func NewCartStore(client *redis.Client, ttl time.Duration) repository.CartRepository {
	return &cartStore{client: client, ttl: ttl}
}

func cartKey(owner string) string {
	return "cart:session:" + owner
}

func (s *cartStore) Get(ctx context.Context, owner string) (*entity.Cart, error) {
	data, err := s.client.Get(ctx, cartKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.NewCart(owner), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session cart: %w", err)
	}

	cart := entity.NewCart(owner)
	if err := json.Unmarshal(data, cart); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session cart: %w", err)
	}
	return cart, nil
}

func (s *cartStore) Save(ctx context.Context, cart *entity.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to marshal session cart: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(cart.Owner), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session cart: %w", err)
	}
	return nil
}

func (s *cartStore) Clear(ctx context.Context, owner string) error {
	if err := s.client.Del(ctx, cartKey(owner)).Err(); err != nil {
		return fmt.Errorf("failed to delete session cart: %w", err)
	}
	return nil
}
