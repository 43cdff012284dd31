package challengerepo

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/solyield/internal/domain"
)

type store interface {
	Save(ctx context.Context, c *domain.Challenge, ttl time.Duration) error
	Consume(ctx context.Context, wallet, nonce string) (*domain.Challenge, error)
}

func exerciseStore(t *testing.T, s store) {
	ctx := context.Background()
	c := domain.NewChallenge("wallet-1", uuid.NewString(), time.Now(), time.Minute)

	require.NoError(t, s.Save(ctx, c, time.Minute))
	assert.Error(t, s.Save(ctx, c, time.Minute), "nonce reuse")

	got, err := s.Consume(ctx, "wallet-1", c.Nonce)
	require.NoError(t, err)
	assert.Equal(t, c.Message, got.Message)

	_, err = s.Consume(ctx, "wallet-1", c.Nonce)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
	assert.ErrorIs(t, err, domain.ErrAuth)

	_, err = s.Consume(ctx, "wallet-2", uuid.NewString())
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	c := domain.NewChallenge("wallet-1", "n-1", now, time.Minute)

	require.NoError(t, s.Save(context.Background(), c, time.Minute))
	now = now.Add(2 * time.Minute)
	_, err := s.Consume(context.Background(), "wallet-1", "n-1")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestMemoryStore_ConsumeOnce(t *testing.T) {
	s := NewMemoryStore()
	c := domain.NewChallenge("wallet-1", "n-1", time.Now(), time.Minute)
	require.NoError(t, s.Save(context.Background(), c, time.Minute))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Consume(context.Background(), "wallet-1", "n-1"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	exerciseStore(t, NewRedisStore(client))
}
