package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Session holds a browser's current selection state: the chosen sections,
// display options, and the total-pages counter for the active selection.
type Session struct {
	MainSection string  `json:"main_section"`
	SubSection  string  `json:"sub_section,omitempty"`
	TotalPages  int     `json:"total_pages"`
	ShowText    bool    `json:"show_text"`
	Zoom        float64 `json:"zoom"`
}

// RedisSessions persists Session records as Redis hashes.
type RedisSessions struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessions connects to Redis and verifies connectivity.
func NewRedisSessions(redisURL string, ttl time.Duration) (*RedisSessions, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &RedisSessions{client: c, ttl: ttl}, nil
}

func (s *RedisSessions) Close() error { return s.client.Close() }

func (s *RedisSessions) key(id string) string { return fmt.Sprintf("session:%s", id) }

// Set writes the whole session hash and refreshes its TTL.
func (s *RedisSessions) Set(ctx context.Context, id string, sess Session) error {
	m := map[string]interface{}{
		"main_section": sess.MainSection,
		"sub_section":  sess.SubSection,
		"total_pages":  sess.TotalPages,
		"show_text":    strconv.FormatBool(sess.ShowText),
		"zoom":         strconv.FormatFloat(sess.Zoom, 'f', -1, 64),
	}
	key := s.key(id)
	if err := s.client.HSet(ctx, key, m).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, s.ttl).Err()
}

// Get loads a session; ok is false when the id is unknown.
func (s *RedisSessions) Get(ctx context.Context, id string) (Session, bool, error) {
	res, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return Session{}, false, err
	}
	if len(res) == 0 {
		return Session{}, false, nil
	}
	sess := Session{
		MainSection: res["main_section"],
		SubSection:  res["sub_section"],
	}
	if v := res["total_pages"]; v != "" {
		sess.TotalPages, _ = strconv.Atoi(v)
	}
	if v := res["show_text"]; v != "" {
		sess.ShowText, _ = strconv.ParseBool(v)
	}
	if v := res["zoom"]; v != "" {
		sess.Zoom, _ = strconv.ParseFloat(v, 64)
	}
	return sess, true, nil
}
