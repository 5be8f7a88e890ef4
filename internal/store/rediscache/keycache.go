package rediscache

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/domain"
	"github.com/mojzu/sso/internal/store"
)

// CachedKeyRepo decorates a store.KeyRepo with a Redis read-through cache
// for the one routing shape that sits on every request's hot path: a
// user-scoped, enabled, not-revoked Token key lookup (login, refresh,
// OAuth2 callback all call exactly this). Every other KeyRead variant
// (root/service lookups, disabled/revoked reads used by admin paths)
// passes straight through uncached, matching the decorator shape of the
// teacher's internal/infrastructure/redis/token_version_cache.go
// (read Redis, fall back to the inner repo, best-effort fill; never fail
// the caller on a cache error).
//
// Trade-off: a key disabled or revoked after being cached remains usable
// through this cache for up to ttl. TTL is deliberately kept short (seconds,
// not minutes) to bound that window, the same judgment call the teacher's
// token-version cache makes for role/lock changes.
type CachedKeyRepo struct {
	inner store.KeyRepo
	rdb   *goredis.Client
	ttl   time.Duration
}

func NewCachedKeyRepo(inner store.KeyRepo, client *Client, ttl time.Duration) *CachedKeyRepo {
	var rdb *goredis.Client
	if client != nil {
		rdb = client.rdb
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &CachedKeyRepo{inner: inner, rdb: rdb, ttl: ttl}
}

func (c *CachedKeyRepo) cacheKey(read domain.KeyRead) (string, bool) {
	if !read.IsUserVariant() || read.ByValue() || !read.UserEnabled() || read.UserRevoked() {
		return "", false
	}
	return "keyroute:" + read.UserServiceID().String() + ":" + read.UserID().String() + ":" + string(read.UserType()), true
}

func (c *CachedKeyRepo) Read(ctx context.Context, read domain.KeyRead) (*domain.KeyWithValue, error) {
	key, cacheable := c.cacheKey(read)
	if !cacheable || c.rdb == nil {
		return c.inner.Read(ctx, read)
	}

	if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var k domain.KeyWithValue
		if json.Unmarshal([]byte(raw), &k) == nil {
			return &k, nil
		}
	}

	row, err := c.inner.Read(ctx, read)
	if err != nil {
		return nil, err
	}
	if row != nil {
		if raw, err := json.Marshal(row); err == nil {
			_ = c.rdb.Set(ctx, key, raw, c.ttl).Err()
		}
	}
	return row, nil
}

func (c *CachedKeyRepo) Create(ctx context.Context, cr domain.KeyCreate) (domain.KeyWithValue, error) {
	return c.inner.Create(ctx, cr)
}

func (c *CachedKeyRepo) Update(ctx context.Context, id uuid.UUID, upd domain.KeyUpdate) (domain.Key, error) {
	return c.inner.Update(ctx, id, upd)
}

func (c *CachedKeyRepo) UpdateManyByUser(ctx context.Context, userID uuid.UUID, upd domain.KeyUpdate) (int64, error) {
	return c.inner.UpdateManyByUser(ctx, userID, upd)
}

func (c *CachedKeyRepo) CountEnabledByType(ctx context.Context, serviceID, userID uuid.UUID, t domain.KeyType) (int64, error) {
	return c.inner.CountEnabledByType(ctx, serviceID, userID, t)
}
