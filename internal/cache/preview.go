package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/polsterdata/polster/internal/config"
	"github.com/polsterdata/polster/internal/service"
)

const (
	previewKeyPrefix  = "polster:preview:"
	defaultPreviewTTL = time.Minute
)

// PreviewCache keeps rendered dataset previews for a short TTL so the API
// does not re-list and re-download an object on every request.
type PreviewCache interface {
	Get(ctx context.Context, name string, limit int) (*service.Preview, bool, error)
	Set(ctx context.Context, name string, limit int, preview *service.Preview) error
}

type redisPreviewCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopPreviewCache struct{}

// NewPreviewCache builds a redis-backed cache, or a noop cache when
// caching is disabled.
func NewPreviewCache(cfg config.CacheConfig) (PreviewCache, error) {
	if !cfg.Enabled {
		return &noopPreviewCache{}, nil
	}

	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := time.Duration(cfg.PreviewTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultPreviewTTL
	}

	return &redisPreviewCache{client: client, ttl: ttl}, nil
}

func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func previewKey(name string, limit int) string {
	return fmt.Sprintf("%s%s:%d", previewKeyPrefix, name, limit)
}

func (c *redisPreviewCache) Get(ctx context.Context, name string, limit int) (*service.Preview, bool, error) {
	payload, err := c.client.Get(ctx, previewKey(name, limit)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var preview service.Preview
	if err := json.Unmarshal(payload, &preview); err != nil {
		return nil, false, fmt.Errorf("decode cached preview: %w", err)
	}
	return &preview, true, nil
}

func (c *redisPreviewCache) Set(ctx context.Context, name string, limit int, preview *service.Preview) error {
	payload, err := json.Marshal(preview)
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	if err := c.client.Set(ctx, previewKey(name, limit), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *noopPreviewCache) Get(ctx context.Context, name string, limit int) (*service.Preview, bool, error) {
	return nil, false, nil
}

func (c *noopPreviewCache) Set(ctx context.Context, name string, limit int, preview *service.Preview) error {
	return nil
}
