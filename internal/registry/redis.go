package registry

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"firestige.xyz/canframe/internal/core"
)

// HashReader is the subset of a redis client used to fetch a registry hash.
// *redis.Client, *redis.ClusterClient and redis.UniversalClient satisfy it.
type HashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// RedisOptions locates a registry stored as a redis hash.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// NewRedisClient creates a client for opts.
func NewRedisClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// LoadRedis fetches a registry from the hash at key. Hash fields are
// identifiers (decimal or 0x-prefixed) and values are names.
func LoadRedis(ctx context.Context, client HashReader, key string) (Map, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: redis key is required", core.ErrConfigInvalid)
	}
	fields, err := client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read registry hash %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: registry hash %s is empty or missing", core.ErrRegistryInvalid, key)
	}

	entries := make([]Entry, 0, len(fields))
	for field, name := range fields {
		id, err := parseIdentifierString(field)
		if err != nil {
			return nil, fmt.Errorf("%w: hash %s: %v", core.ErrRegistryInvalid, key, err)
		}
		entries = append(entries, Entry{ID: id, Name: name})
	}
	return FromEntries(entries)
}
