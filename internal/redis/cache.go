package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"convo-chat/internal/domain/user"

	goredis "github.com/redis/go-redis/v9"
)

const (
	// directoryKey prefixes the name-ordered user list served by the contacts
	// endpoint. The list lives under directoryKey:<version>.
	directoryKey = "directory:users"
	// directoryVersionKey is bumped on every user mutation. A list written
	// under an older version is never read again and ages out on its TTL.
	directoryVersionKey = "directory:users:version"
)

// DirectoryCache caches the full user directory in Redis.
type DirectoryCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewDirectoryCache(client *goredis.Client, ttl time.Duration) *DirectoryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DirectoryCache{client: client, ttl: ttl}
}

func directoryKeyFor(version int64) string {
	return directoryKey + ":" + strconv.FormatInt(version, 10)
}

// Get returns the cached directory and the version it was looked up under.
// A miss yields (nil, version, false, nil); pass that version to Set.
func (c *DirectoryCache) Get(ctx context.Context) ([]user.User, int64, bool, error) {
	version, err := c.client.Get(ctx, directoryVersionKey).Int64()
	if err != nil && err != goredis.Nil {
		return nil, 0, false, err
	}

	data, err := c.client.Get(ctx, directoryKeyFor(version)).Bytes()
	if err == goredis.Nil {
		return nil, version, false, nil
	}
	if err != nil {
		return nil, version, false, err
	}

	var users []user.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, version, false, err
	}
	return users, version, true, nil
}

// Set stores users under version. A list loaded before a concurrent
// Invalidate lands under a version nobody reads.
func (c *DirectoryCache) Set(ctx context.Context, version int64, users []user.User) error {
	data, err := json.Marshal(users)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, directoryKeyFor(version), data, c.ttl).Err()
}

func (c *DirectoryCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, directoryVersionKey).Err()
}
