package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/strataops/strata/pkg/observability"
)

const membershipL1Size = 4096

// CachedMembershipStore wraps a MembershipStore with a two-level cache: an
// in-process expirable LRU in front of Redis. Only positive lookups are
// cached, so a newly added member is visible immediately; a revoked role
// converges within the TTL. Callers that change memberships should call
// Invalidate to converge faster.
type CachedMembershipStore struct {
	store   MembershipStore
	redis   *redis.Client
	l1      *expirable.LRU[string, Role]
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewCachedMembershipStore creates a caching layer over the given store.
// The redis client may be nil, in which case only the in-process cache is used.
func NewCachedMembershipStore(store MembershipStore, redisClient *redis.Client, ttl time.Duration) *CachedMembershipStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedMembershipStore{
		store: store,
		redis: redisClient,
		l1:    expirable.NewLRU[string, Role](membershipL1Size, nil, ttl),
		ttl:   ttl,
	}
}

// WithMetrics attaches cache hit/miss counters and returns the store
func (c *CachedMembershipStore) WithMetrics(m *observability.Metrics) *CachedMembershipStore {
	c.metrics = m
	return c
}

func (c *CachedMembershipStore) hit() {
	if c.metrics != nil {
		c.metrics.MembershipCacheHits.Inc()
	}
}

func (c *CachedMembershipStore) miss() {
	if c.metrics != nil {
		c.metrics.MembershipCacheMisses.Inc()
	}
}

func membershipKey(tenantID, userID uuid.UUID) string {
	return fmt.Sprintf("membership:%s:%s", tenantID, userID)
}

// Lookup returns the user's role in the tenant, consulting the caches first
func (c *CachedMembershipStore) Lookup(ctx context.Context, tenantID, userID uuid.UUID) (Role, error) {
	key := membershipKey(tenantID, userID)

	if role, ok := c.l1.Get(key); ok {
		c.hit()
		return role, nil
	}

	if c.redis != nil {
		cached, err := c.redis.Get(ctx, key).Result()
		if err == nil {
			if role, parseErr := ParseRole(cached); parseErr == nil {
				c.hit()
				c.l1.Add(key, role)
				return role, nil
			}
			// Corrupt entry, drop it and fall through to the store
			c.redis.Del(ctx, key)
		}
	}

	c.miss()
	role, err := c.store.Lookup(ctx, tenantID, userID)
	if err != nil {
		return "", err
	}

	c.l1.Add(key, role)
	if c.redis != nil {
		c.redis.Set(ctx, key, string(role), c.ttl)
	}

	return role, nil
}

// Invalidate removes a cached membership, e.g. after a role change or removal
func (c *CachedMembershipStore) Invalidate(ctx context.Context, tenantID, userID uuid.UUID) error {
	key := membershipKey(tenantID, userID)
	c.l1.Remove(key)
	if c.redis != nil {
		if err := c.redis.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to invalidate membership cache: %w", err)
		}
	}
	return nil
}
