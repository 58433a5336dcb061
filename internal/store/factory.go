package store

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// ProviderConfig holds the configuration needed to create a store instance.
type ProviderConfig struct {
	// TTL expires an entry this long after it was last written. Zero keeps entries until deleted.
	TTL time.Duration

	// Logger receives error reports from read operations. If nil, errors are silently ignored.
	Logger Logger

	// Path is the database file used by the bolt provider.
	Path string

	// Bucket is the bolt bucket name. Defaults to "linkdrop".
	Bucket string

	// RedisAddress is the Redis/Valkey server address (e.g., "localhost:6379").
	RedisAddress string

	// RedisPassword is the password for the Redis/Valkey server.
	RedisPassword string

	// RedisDB is the Redis/Valkey database number.
	RedisDB int

	// KeyPrefix namespaces redis keys. Defaults to "linkdrop:".
	KeyPrefix string
}

// Provider is a constructor function that creates a Store from config.
type Provider func(cfg ProviderConfig) (Store, error)

var (
	mu        sync.RWMutex
	providers = make(map[string]Provider)
)

// Register registers a store provider under the given name.
// It panics if the name is already registered or the provider is nil.
func Register(name string, p Provider) {
	mu.Lock()
	defer mu.Unlock()

	if p == nil {
		panic("store: Register provider is nil")
	}
	if _, exists := providers[name]; exists {
		panic(fmt.Sprintf("store: provider %q already registered", name))
	}
	providers[name] = p
}

// New creates a Store using the named provider.
func New(name string, cfg ProviderConfig) (Store, error) {
	mu.RLock()
	p, ok := providers[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("store: unknown provider %q (registered: %v)", name, RegisteredProviders())
	}

	return p(cfg)
}

// RegisteredProviders returns a sorted list of registered provider names.
func RegisteredProviders() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
