package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recycle-pickup-api-server/config"
	"recycle-pickup-api-server/internal/engine"
	"recycle-pickup-api-server/internal/leaderboard"
	"recycle-pickup-api-server/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const generationKey = "leaderboard:generation"

// Connect parses the Redis URL and pings the server.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Leaderboard caches computed rankings under a generation number. Bumping
// the generation makes every cached ranking unreachable at once; old keys
// expire on their TTL.
type Leaderboard struct {
	client *redis.Client
	ttl    time.Duration
	log    logrus.FieldLogger
}

var (
	_ leaderboard.Cache = (*Leaderboard)(nil)
	_ engine.Listener   = (*Leaderboard)(nil)
)

func NewLeaderboard(client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *Leaderboard {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Leaderboard{client: client, ttl: ttl, log: log}
}

func (c *Leaderboard) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func dataKey(gen int64, key string) string {
	return fmt.Sprintf("leaderboard:%d:%s", gen, key)
}

// Get looks key up in the current generation and returns that generation
// for a following Set.
func (c *Leaderboard) Get(ctx context.Context, key string) ([]leaderboard.Entry, int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}
	raw, err := c.client.Get(ctx, dataKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, err
	}

	var entries []leaderboard.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, gen, false, fmt.Errorf("decode cached ranking: %w", err)
	}
	return entries, gen, true, nil
}

// Set stores entries under gen. When the generation has moved on since gen
// was read the entry is unreachable and just expires.
func (c *Leaderboard) Set(ctx context.Context, gen int64, key string, entries []leaderboard.Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, dataKey(gen, key), raw, c.ttl).Err()
}

// Invalidate drops every cached ranking.
func (c *Leaderboard) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}

func (c *Leaderboard) PickupChanged(context.Context, models.PickupRequest) {}

func (c *Leaderboard) PickupCompleted(ctx context.Context, done engine.Completion) {
	if err := c.Invalidate(ctx); err != nil {
		c.log.WithError(err).WithField("pickup_id", done.Pickup.ID).Warn("failed to invalidate leaderboard cache")
	}
}
