package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const itemKeyPrefix = "menu_item:"

// CachedResolver wraps another Resolver with a Redis cache. Concurrent misses
// for the same item are collapsed into a single upstream lookup.
type CachedResolver struct {
	next   Resolver
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

func NewCachedResolver(next Resolver, client *redis.Client, ttl time.Duration) *CachedResolver {
	return &CachedResolver{next: next, client: client, ttl: ttl}
}

func (r *CachedResolver) Resolve(ctx context.Context, itemID string) (*Item, error) {
	key := itemKeyPrefix + itemID

	data, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var item Item
		if err := json.Unmarshal(data, &item); err == nil {
			return &item, nil
		}
		// Corrupt entry, fall through to the upstream resolver.
	} else if err != redis.Nil {
		slog.Warn("menu cache read failed", "item_id", itemID, "error", err)
	}

	v, err, _ := r.group.Do(itemID, func() (any, error) {
		item, err := r.next.Resolve(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(item); err == nil {
			if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
				slog.Warn("menu cache write failed", "item_id", itemID, "error", err)
			}
		}
		return item, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Item), nil
}

// ListByCanteen is not cached. Menu listings hit the read path rarely
// compared to item resolution on every order mutation.
func (r *CachedResolver) ListByCanteen(ctx context.Context, canteenID string) ([]*Item, error) {
	return r.next.ListByCanteen(ctx, canteenID)
}
