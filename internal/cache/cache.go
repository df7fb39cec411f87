package cache

import (
	"context"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically evicts expired entries from the registered caches.
// Run blocks until the context is cancelled, so it slots straight into an
// errgroup alongside the HTTP server.
type Janitor struct {
	caches   []Cleaner
	interval time.Duration
}

// NewJanitor creates a janitor sweeping at the given interval.
func NewJanitor(interval time.Duration) *Janitor {
	return &Janitor{interval: interval}
}

// Register adds a cache to the janitor's sweep list. Not safe to call after
// Run has started.
func (j *Janitor) Register(c Cleaner) {
	j.caches = append(j.caches, c)
}

// Run sweeps until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, c := range j.caches {
				c.CleanExpired()
			}
		}
	}
}
