package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const nameCacheTTL = 15 * time.Minute

// NameCache caches username-to-canonical-ID resolutions so repeated operator
// commands against the same member skip the upstream lookup. Entries expire
// quickly: usernames are mutable upstream and the cache must never outlive a
// rename for long. Key format: subject:<lowercased_username>
type NameCache struct {
	client *redis.Client
}

// NewNameCache wraps the given Redis client.
func NewNameCache(client *redis.Client) *NameCache {
	return &NameCache{client: client}
}

// Get returns the cached canonical ID for username, if present.
func (c *NameCache) Get(ctx context.Context, username string) (int64, bool, error) {
	val, err := c.client.Get(ctx, c.key(username)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("name cache get: %w", err)
	}

	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("name cache get: corrupt entry %q", val)
	}
	return id, true, nil
}

// Put records a resolution (expires after nameCacheTTL).
func (c *NameCache) Put(ctx context.Context, username string, id int64) error {
	return c.client.Set(ctx, c.key(username), strconv.FormatInt(id, 10), nameCacheTTL).Err()
}

func (c *NameCache) key(username string) string {
	return "subject:" + strings.ToLower(username)
}
