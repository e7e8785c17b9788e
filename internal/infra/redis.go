// README: Redis client initialization for the pricing snapshot cache.
package infra

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// NewRedis returns a client even when Redis is down; the pricing cache
// falls back to Postgres on every error.
func NewRedis(ctx context.Context, addr string) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("infra: redis %s unreachable, pricing cache will miss: %v", addr, err)
	}
	return client
}
