// Package redisx holds the Redis-backed lookaside pieces: the invite-token
// index (invite links and QR codes carry only the opaque token, so joining
// needs token → order id resolution) and a short-TTL snapshot cache for the
// poll-heavy read path.
package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound is returned when an invite token has no known order.
var ErrTokenNotFound = errors.New("invite token not found")

const (
	inviteKeyPrefix   = "invite:"
	snapshotKeyPrefix = "snapshot:"
)

// InviteIndex maps invite tokens to group order ids.
type InviteIndex struct {
	client *redis.Client
}

func NewInviteIndex(client *redis.Client) *InviteIndex {
	return &InviteIndex{client: client}
}

// Put records token → groupOrderID. Tokens are immutable once issued, so
// entries never expire.
func (i *InviteIndex) Put(ctx context.Context, token, groupOrderID string) error {
	return i.client.Set(ctx, inviteKeyPrefix+token, groupOrderID, 0).Err()
}

// Resolve returns the group order id for a token.
func (i *InviteIndex) Resolve(ctx context.Context, token string) (string, error) {
	id, err := i.client.Get(ctx, inviteKeyPrefix+token).Result()
	if err == redis.Nil {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// SnapshotCache caches serialized group order snapshots keyed by order id.
// Entries are invalidated by overwrite after every accepted mutation and
// expire quickly on their own, so a lost invalidation only yields briefly
// stale reads on the poll path.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

func (c *SnapshotCache) Get(ctx context.Context, groupOrderID string, out any) (bool, error) {
	value, err := c.client.Get(ctx, snapshotKeyPrefix+groupOrderID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return false, err
	}
	return true, nil
}

func (c *SnapshotCache) Set(ctx context.Context, groupOrderID string, snapshot any) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, snapshotKeyPrefix+groupOrderID, payload, c.ttl).Err()
}

func (c *SnapshotCache) Invalidate(ctx context.Context, groupOrderID string) error {
	return c.client.Del(ctx, snapshotKeyPrefix+groupOrderID).Err()
}
