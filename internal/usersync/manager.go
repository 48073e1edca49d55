package usersync

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/growme/backend/internal/store"
)

// Manager owns one Cache per authenticated subject. It replaces the
// original module-level singleton: constructed once in main and injected
// into every handler that needs profile data.
//
// Callers acquire a cache for the duration of a request or a streaming
// connection and release it when done; the cache's subscription is torn
// down when the last holder releases.
type Manager struct {
	store store.ProfileStore
	log   *zap.Logger

	mu     sync.Mutex
	caches map[string]*managed
}

type managed struct {
	cache *Cache
	refs  int
	ready chan struct{}
	err   error
}

func NewManager(st store.ProfileStore, log *zap.Logger) *Manager {
	return &Manager{
		store:  st,
		log:    log,
		caches: make(map[string]*managed),
	}
}

// Acquire returns the live, loaded cache for uid, starting one (load +
// subscribe) if none exists. The release function must be called exactly
// once; when the last holder releases, the cache is disposed and dropped.
func (m *Manager) Acquire(ctx context.Context, uid string) (*Cache, func(), error) {
	m.mu.Lock()
	entry, ok := m.caches[uid]
	if ok {
		entry.refs++
		m.mu.Unlock()

		release := m.releaseFunc(uid, entry)
		select {
		case <-entry.ready:
		case <-ctx.Done():
			release()
			return nil, nil, ctx.Err()
		}
		if entry.err != nil {
			release()
			return nil, nil, entry.err
		}
		return entry.cache, release, nil
	}

	entry = &managed{
		cache: NewCache(uid, m.store, m.log),
		refs:  1,
		ready: make(chan struct{}),
	}
	m.caches[uid] = entry
	m.mu.Unlock()

	err := entry.cache.Start(ctx)

	m.mu.Lock()
	entry.err = err
	if err != nil {
		delete(m.caches, uid)
	}
	close(entry.ready)
	m.mu.Unlock()

	if err != nil {
		entry.cache.Dispose()
		return nil, nil, err
	}
	return entry.cache, m.releaseFunc(uid, entry), nil
}

// releaseFunc decrements the holder count and disposes the cache once the
// last holder is gone. Safe to call at most once per acquisition.
func (m *Manager) releaseFunc(uid string, entry *managed) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			entry.refs--
			last := entry.refs == 0 && m.caches[uid] == entry
			if last {
				delete(m.caches, uid)
			}
			m.mu.Unlock()

			if last {
				entry.cache.Dispose()
			}
		})
	}
}

// Shutdown disposes every live cache.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	caches := make([]*Cache, 0, len(m.caches))
	for _, entry := range m.caches {
		caches = append(caches, entry.cache)
	}
	m.caches = make(map[string]*managed)
	m.mu.Unlock()

	for _, c := range caches {
		c.Dispose()
	}
}
