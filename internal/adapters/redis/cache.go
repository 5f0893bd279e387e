package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Acquire takes the short-lived lock for key. It reports false when another
// owner holds it.
func (c *Cache) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	res := c.client.SetNX(ctx, "lock:"+key, owner, ttl)
	return res.Val(), res.Err()
}

func (c *Cache) Release(ctx context.Context, key, owner string) error {
	return releaseScript.Run(ctx, c.client, []string{"lock:" + key}, owner).Err()
}
