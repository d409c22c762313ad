package store

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

// scanWindow bounds how many top queries are pulled back for substring
// filtering on a single suggestion call.
const scanWindow = 500

// RedisPopularity tracks how often queries are searched in a Redis sorted
// set scored by search count. It backs the suggestion engine's primary
// source.
type RedisPopularity struct {
	client *redis.Client
	key    string
}

func NewRedisPopularity(addr, key string) *RedisPopularity {
	return &RedisPopularity{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    key,
	}
}

func (p *RedisPopularity) Close() error {
	return p.client.Close()
}

func (p *RedisPopularity) Record(ctx context.Context, query string) error {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	return p.client.ZIncrBy(ctx, p.key, 1, q).Err()
}

// TopMatching returns up to limit queries containing substr, most searched
// first.
func (p *RedisPopularity) TopMatching(ctx context.Context, substr string, limit int) ([]string, error) {
	members, err := p.client.ZRevRange(ctx, p.key, 0, scanWindow-1).Result()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range members {
		if strings.Contains(m, substr) {
			out = append(out, m)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
