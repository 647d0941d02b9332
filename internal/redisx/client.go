package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// MarkProcessed records an event id for dedup; returns false when the
// id was already seen.
func MarkProcessed(ctx context.Context, rdb *redis.Client, service, eventID string) (bool, error) {
	key := DedupKey(service, eventID)
	return rdb.SetNX(ctx, key, 1, TTLDedup).Result()
}
