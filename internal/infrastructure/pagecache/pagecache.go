package pagecache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "page:"
	genPrefix = "page-gen:"
	// Channel receives the path of every invalidated page so renderers holding
	// their own copy can drop it too.
	Channel = "revalidate"
)

// Key returns the Redis key for a public page path.
func Key(path string) string {
	return keyPrefix + path
}

// GenKey returns the Redis key of the invalidation counter for path.
func GenKey(path string) string {
	return genPrefix + path
}

// Cache stores rendered public listing pages in Redis.
type Cache struct {
	Rdb *redis.Client
	TTL time.Duration
}

// Get returns the cached body for path; ok is false on a miss.
func (c *Cache) Get(ctx context.Context, path string) ([]byte, bool, error) {
	b, err := c.Rdb.Get(ctx, Key(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Generation returns how many times path has been invalidated. Readers take it
// before loading the page from the database and hand it to Fill.
func (c *Cache) Generation(ctx context.Context, path string) (int64, error) {
	gen, err := c.Rdb.Get(ctx, GenKey(path)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Fill stores body for path only while its generation is still gen. A body
// loaded before a concurrent InvalidatePath is dropped; stored is false then.
func (c *Cache) Fill(ctx context.Context, path string, body []byte, gen int64) (stored bool, err error) {
	genKey := GenKey(path)
	err = c.Rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if errors.Is(err, redis.Nil) {
			cur = 0
		} else if err != nil {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, Key(path), body, c.TTL)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// InvalidatePath bumps the generation of path, drops the cached page and
// announces the path on Channel.
func (c *Cache) InvalidatePath(ctx context.Context, path string) error {
	_, err := c.Rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenKey(path))
		pipe.Del(ctx, Key(path))
		return nil
	})
	if err != nil {
		return err
	}
	return c.Rdb.Publish(ctx, Channel, path).Err()
}
