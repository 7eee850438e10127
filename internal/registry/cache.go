package registry

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Cache hands out the current registry snapshot and regenerates it once it is
// older than the TTL.
type Cache struct {
	opts   BuildOptions
	ttl    time.Duration
	clock  clockwork.Clock
	logger *slog.Logger

	mu      sync.Mutex
	current *Registry
}

// NewCache creates a registry cache. Nothing is generated until the first Get.
func NewCache(opts BuildOptions, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger) *Cache {
	return &Cache{
		opts:   opts,
		ttl:    ttl,
		clock:  clock,
		logger: logger,
	}
}

// Get returns the live snapshot, rebuilding it when missing or stale.
func (c *Cache) Get() (*Registry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.current != nil && now.Sub(c.current.BuiltAt()) < c.ttl {
		return c.current, nil
	}

	reg, err := Generate(c.opts, now)
	if err != nil {
		return nil, err
	}
	c.current = reg
	c.logger.Info("shelter registry rebuilt", "shelters", reg.Len(), "hubs", len(c.opts.Hubs))
	return reg, nil
}

// Generate builds and indexes a registry stamped with now. A zero seed is
// replaced by now's nanosecond timestamp.
func Generate(opts BuildOptions, now time.Time) (*Registry, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(now.UnixNano())
	}
	records := Build(opts, rand.New(rand.NewPCG(seed, seed)))

	reg, err := New(records, now)
	if err != nil {
		return nil, fmt.Errorf("build shelter registry: %w", err)
	}
	return reg, nil
}
