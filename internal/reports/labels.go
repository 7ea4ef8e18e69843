package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const labelsVersionKey = "reports:labels:version"

// Cache wraps Redis based caching with versioning controls. It is used only
// for cosmetic client/project labels on exports; aggregate results are
// request-scoped and never cached.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, labelsVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, labelsVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	if c == nil || c.client == nil {
		return strings.Join(parts, ":"), nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", strings.Join(parts, ":"), ver), nil
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if loader == nil {
		return errors.New("reports: cache loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if err != redis.Nil {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates cached labels after client/project renames.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, labelsVersionKey).Err()
}

// NameLookup resolves display names for export labeling.
type NameLookup interface {
	ClientName(ctx context.Context, id int64) (string, error)
	ProjectName(ctx context.Context, id int64) (string, error)
}

// Labels serves client/project display names through the versioned cache.
type Labels struct {
	lookup NameLookup
	cache  *Cache
}

// NewLabels wires a NameLookup with the cache helper. A nil cache degrades to
// direct lookups.
func NewLabels(lookup NameLookup, cache *Cache) *Labels {
	return &Labels{lookup: lookup, cache: cache}
}

// ClientName returns the client display name for the given id.
func (l *Labels) ClientName(ctx context.Context, id int64) (string, error) {
	return l.name(ctx, "client", id, l.lookup.ClientName)
}

// ProjectName returns the project display name for the given id.
func (l *Labels) ProjectName(ctx context.Context, id int64) (string, error) {
	return l.name(ctx, "project", id, l.lookup.ProjectName)
}

func (l *Labels) name(ctx context.Context, kind string, id int64, resolve func(context.Context, int64) (string, error)) (string, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		return resolve(ctx, id)
	}
	key, err := l.cache.BuildKey(ctx, "reports", "labels", kind, strconv.FormatInt(id, 10))
	if err != nil {
		return "", err
	}
	var name string
	if err := l.cache.FetchJSON(ctx, key, &name, loader); err != nil {
		return "", err
	}
	return name, nil
}
