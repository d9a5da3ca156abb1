// Package store persists named scripts so they can be saved and later
// reloaded by name (§6 save/list_saved). Modeled on conduit's
// internal/web/cache.RedisCache — a thin client wrapper keyed by a fixed
// prefix — and on flosch-pongo2's dependency on github.com/juju/errors for
// NotFound-style sentinel errors a caller can test for with errors.IsNotFound
// rather than string-matching.
package store

import (
	"context"
	stderrors "errors"
	"regexp"
	"sort"
	"sync"

	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
)

// nameRE matches the §6 rule for a valid saved-script name.
var nameRE = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateName reports whether name is a legal saved-script identifier.
func ValidateName(name string) error {
	if !nameRE.MatchString(name) {
		return errors.NotValidf("script name %q", name)
	}
	return nil
}

// Store saves and retrieves script source by name.
type Store interface {
	// Save writes source under name, overwriting any existing script of
	// that name.
	Save(ctx context.Context, name, source string) error
	// Load returns the source saved under name. It returns an error
	// satisfying errors.IsNotFound if no script is saved under that name.
	Load(ctx context.Context, name string) (string, error)
	// List returns the names of all saved scripts, sorted.
	List(ctx context.Context) ([]string, error)
}

// MemoryStore is the default in-process Store, backed by a guarded map.
type MemoryStore struct {
	mu      sync.RWMutex
	scripts map[string]string
}

// NewMemory builds an empty in-memory Store.
func NewMemory() *MemoryStore {
	return &MemoryStore{scripts: make(map[string]string)}
}

func (m *MemoryStore) Save(ctx context.Context, name, source string) error {
	if err := ValidateName(name); err != nil {
		return errors.Trace(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[name] = source
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	source, ok := m.scripts[name]
	if !ok {
		return "", errors.NotFoundf("saved script %q", name)
	}
	return source, nil
}

func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.scripts))
	for name := range m.scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// RedisConfig holds Redis-specific store configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key this store touches, so a shared Redis
	// instance can host more than one BotScript deployment.
	Prefix string
}

// DefaultRedisConfig returns sane defaults for a local Redis instance.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{Addr: "localhost:6379", Prefix: "botscript:script:"}
}

// RedisStore is a Redis-backed Store. Scripts live as plain string values
// under "<prefix><name>"; a set at "<prefix>:index" tracks the saved names
// so List doesn't need a SCAN.
type RedisStore struct {
	client *redis.Client
	prefix string
	index  string
}

// NewRedisStore dials Redis and verifies connectivity before returning.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Annotate(err, "connecting to redis")
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "botscript:script:"
	}
	return &RedisStore{client: client, prefix: prefix, index: prefix + ":index"}, nil
}

// NewRedisStoreWithClient builds a RedisStore around an already-constructed
// client, useful for tests against a miniredis instance.
func NewRedisStoreWithClient(client *redis.Client, cfg RedisConfig) *RedisStore {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "botscript:script:"
	}
	return &RedisStore{client: client, prefix: prefix, index: prefix + ":index"}
}

func (r *RedisStore) key(name string) string {
	return r.prefix + name
}

func (r *RedisStore) Save(ctx context.Context, name, source string) error {
	if err := ValidateName(name); err != nil {
		return errors.Trace(err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(name), source, 0)
	pipe.SAdd(ctx, r.index, name)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Annotatef(err, "saving script %q", name)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, name string) (string, error) {
	source, err := r.client.Get(ctx, r.key(name)).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return "", errors.NotFoundf("saved script %q", name)
		}
		return "", errors.Annotatef(err, "loading script %q", name)
	}
	return source, nil
}

func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	names, err := r.client.SMembers(ctx, r.index).Result()
	if err != nil {
		return nil, errors.Annotate(err, "listing saved scripts")
	}
	sort.Strings(names)
	return names, nil
}

// Close releases the underlying Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
