package challengerepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/GlebRadaev/solyield/internal/domain"
)

const keyPrefix = "solyield:challenge:"

// ErrChallengeNotFound is returned for unknown, expired or already used challenges.
var ErrChallengeNotFound = fmt.Errorf("challenge not found or already used: %w", domain.ErrAuth)

func key(wallet, nonce string) string {
	return keyPrefix + wallet + ":" + nonce
}

// RedisStore keeps one-time login challenges in Redis.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, c *domain.Challenge, ttl time.Duration) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}
	ok, err := s.client.SetNX(ctx, key(c.WalletAddress, c.Nonce), payload, ttl).Result()
	if err != nil {
		zap.L().Error("failed to save challenge", zap.String("wallet", c.WalletAddress), zap.Error(err))
		return err
	}
	if !ok {
		return fmt.Errorf("challenge nonce %s already issued", c.Nonce)
	}
	return nil
}

// Consume returns the challenge and deletes it atomically.
func (s *RedisStore) Consume(ctx context.Context, wallet, nonce string) (*domain.Challenge, error) {
	raw, err := s.client.GetDel(ctx, key(wallet, nonce)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		zap.L().Error("failed to consume challenge", zap.String("wallet", wallet), zap.Error(err))
		return nil, err
	}
	var c domain.Challenge
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode challenge: %w", err)
	}
	return &c, nil
}

// MemoryStore is used when no Redis address is configured. Challenges do not
// survive a restart and are not shared between replicas.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]*domain.Challenge
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*domain.Challenge), now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, c *domain.Challenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired()
	k := key(c.WalletAddress, c.Nonce)
	if _, ok := s.items[k]; ok {
		return fmt.Errorf("challenge nonce %s already issued", c.Nonce)
	}
	stored := *c
	stored.ExpiresAt = s.now().Add(ttl)
	s.items[k] = &stored
	return nil
}

func (s *MemoryStore) Consume(_ context.Context, wallet, nonce string) (*domain.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(wallet, nonce)
	c, ok := s.items[k]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	delete(s.items, k)
	if !s.now().Before(c.ExpiresAt) {
		return nil, ErrChallengeNotFound
	}
	return c, nil
}

func (s *MemoryStore) evictExpired() {
	now := s.now()
	for k, c := range s.items {
		if !now.Before(c.ExpiresAt) {
			delete(s.items, k)
		}
	}
}
