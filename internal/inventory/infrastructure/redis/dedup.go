package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "inventory:dedup:"

// DedupStore records inbound message IDs with an expiry. SETNX makes the
// check-and-set a single atomic operation, so two concurrent deliveries of
// the same message cannot both pass.
type DedupStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDedupStore(rdb *redis.Client, ttl time.Duration) *DedupStore {
	return &DedupStore{rdb: rdb, ttl: ttl}
}

// FirstSighting returns true when messageID has not been seen within the
// TTL window, recording it as seen in the same operation.
func (s *DedupStore) FirstSighting(ctx context.Context, messageID string) (bool, error) {
	return s.rdb.SetNX(ctx, keyPrefix+messageID, "1", s.ttl).Result()
}
