package cache

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Client is shared by HTTP rate limiting when several server instances run
// behind one balancer. It stays nil when no address is configured.
var Client *redis.Client

func InitRedis(ctx context.Context, addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		log.Println("REDIS_URL not set, using in-process rate limiting")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	Client = client
	log.Println("Connected to Redis")
	return nil
}
