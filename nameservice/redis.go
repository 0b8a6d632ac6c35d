package nameservice

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisBinder stores bindings as Redis keys with a TTL, so a crashed or
// killed server's binding expires on its own even if cleanup never runs.
// Rebind simply re-sets the TTL, acting as the heartbeat the GLOSSARY's
// Rebinder performs.
type RedisBinder struct {
	client *redis.Client
}

// NewRedisBinder connects to addr (host:port) with the given DB index.
func NewRedisBinder(addr string, db int) *RedisBinder {
	return &RedisBinder{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
	}
}

func keyFor(binding string) string {
	return "cqcsrv:binding:" + binding
}

// Bind publishes binding → address with ttl.
func (b *RedisBinder) Bind(ctx context.Context, binding, address string, ttl time.Duration) error {
	return b.client.Set(ctx, keyFor(binding), address, ttl).Err()
}

// Unbind removes binding. A missing key is not an error.
func (b *RedisBinder) Unbind(ctx context.Context, binding string) error {
	return b.client.Del(ctx, keyFor(binding)).Err()
}

// Rebind re-asserts binding's TTL, recreating the key if it expired
// between heartbeats.
func (b *RedisBinder) Rebind(ctx context.Context, binding, address string, ttl time.Duration) error {
	ok, err := b.client.Expire(ctx, keyFor(binding), ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return b.Bind(ctx, binding, address, ttl)
	}
	return nil
}

// Close releases the underlying connection pool.
func (b *RedisBinder) Close() error {
	return b.client.Close()
}

// Lookup returns the address currently bound to binding, for admin
// diagnostics and tests.
func (b *RedisBinder) Lookup(ctx context.Context, binding string) (string, error) {
	return b.client.Get(ctx, keyFor(binding)).Result()
}
