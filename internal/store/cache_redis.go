package store

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RenderCache stores rendered page images and extracted text in Redis so a
// section can be re-browsed without re-rasterizing every page.
type RenderCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRenderCache connects to Redis and verifies connectivity.
func NewRenderCache(redisURL string, ttl time.Duration) (*RenderCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RenderCache{client: c, ttl: ttl}, nil
}

func (c *RenderCache) Close() error { return c.client.Close() }

// Ping checks redis connectivity.
func (c *RenderCache) Ping(ctx context.Context) error { return c.client.Ping(ctx).Err() }

func textKey(page int) string { return fmt.Sprintf("page:%d:text", page) }

// imageKey encodes the render parameters so distinct zoom/format/color
// combinations never collide.
func imageKey(page int, zoom float64, format, color string) string {
	return fmt.Sprintf("page:%d:img:%d:%s:%s", page, int(zoom*100), format, color)
}

// GetText returns cached page text; ok is false on a miss.
func (c *RenderCache) GetText(ctx context.Context, page int) (string, bool, error) {
	res, err := c.client.Get(ctx, textKey(page)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return res, true, nil
}

// SetText caches page text with the configured TTL.
func (c *RenderCache) SetText(ctx context.Context, page int, text string) error {
	return c.client.Set(ctx, textKey(page), text, c.ttl).Err()
}

// GetImage returns cached image bytes; ok is false on a miss.
func (c *RenderCache) GetImage(ctx context.Context, page int, zoom float64, format, color string) ([]byte, bool, error) {
	res, err := c.client.Get(ctx, imageKey(page, zoom, format, color)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

// SetImage caches rendered image bytes with the configured TTL.
func (c *RenderCache) SetImage(ctx context.Context, page int, zoom float64, format, color string, data []byte) error {
	return c.client.Set(ctx, imageKey(page, zoom, format, color), data, c.ttl).Err()
}
