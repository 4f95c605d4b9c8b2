package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/tombamento-backend/pkg/redis"
)

// PendingStore holds the asset tags a session has proposed but not yet
// confirmed, keyed by canonical tag.
type PendingStore interface {
	// Reserve holds tag for inventoryID. When another record already holds
	// the tag, ok is false and owner names the holder.
	Reserve(ctx context.Context, sessionID uuid.UUID, tag string, inventoryID uuid.UUID) (owner uuid.UUID, ok bool, err error)
	Release(ctx context.Context, sessionID uuid.UUID, tags ...string) error
	Tags(ctx context.Context, sessionID uuid.UUID) (map[string]uuid.UUID, error)
	Drop(ctx context.Context, sessionID uuid.UUID) error
}

const reserveAttempts = 3

type redisPendingStore struct {
	store redis.HashStore
	ttl   time.Duration
}

// NewRedisPendingStore keeps pending links in one Redis hash per session.
// Every reservation pushes the hash expiry out by ttl.
func NewRedisPendingStore(store redis.HashStore, ttl time.Duration) (PendingStore, error) {
	if store == nil {
		return nil, fmt.Errorf("redis hash store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("pending ttl must be positive")
	}
	return &redisPendingStore{store: store, ttl: ttl}, nil
}

func (p *redisPendingStore) Reserve(ctx context.Context, sessionID uuid.UUID, tag string, inventoryID uuid.UUID) (uuid.UUID, bool, error) {
	key := p.store.PendingKey(sessionID.String())
	for attempt := 0; attempt < reserveAttempts; attempt++ {
		set, err := p.store.HSetNX(ctx, key, tag, inventoryID.String())
		if err != nil {
			return uuid.Nil, false, err
		}
		if set {
			return inventoryID, true, p.store.Expire(ctx, key, p.ttl)
		}

		raw, err := p.store.HGet(ctx, key, tag)
		if errors.Is(err, goredis.Nil) {
			// Released between the two calls.
			continue
		}
		if err != nil {
			return uuid.Nil, false, err
		}
		owner, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("corrupt pending owner for tag %s: %w", tag, err)
		}
		if owner != inventoryID {
			return owner, false, nil
		}
		return inventoryID, true, p.store.Expire(ctx, key, p.ttl)
	}
	return uuid.Nil, false, fmt.Errorf("pending reservation for tag %s kept changing", tag)
}

func (p *redisPendingStore) Release(ctx context.Context, sessionID uuid.UUID, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	return p.store.HDel(ctx, p.store.PendingKey(sessionID.String()), tags...)
}

func (p *redisPendingStore) Tags(ctx context.Context, sessionID uuid.UUID) (map[string]uuid.UUID, error) {
	raw, err := p.store.HGetAll(ctx, p.store.PendingKey(sessionID.String()))
	if err != nil {
		return nil, err
	}
	out := make(map[string]uuid.UUID, len(raw))
	for tag, owner := range raw {
		id, err := uuid.Parse(owner)
		if err != nil {
			continue
		}
		out[tag] = id
	}
	return out, nil
}

func (p *redisPendingStore) Drop(ctx context.Context, sessionID uuid.UUID) error {
	return p.store.Del(ctx, p.store.PendingKey(sessionID.String()))
}
