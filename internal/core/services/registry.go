package services

import (
	"container/list"
	"context"
	"sync"

	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docport-cli/internal/logger"
)

// DefaultMaxOpenHandles bounds the number of session indexes kept in
// memory at once.
const DefaultMaxOpenHandles = 8

// Registry caches open session index handles with LRU eviction and
// hands out a per-session lock that serialises ingest-and-persist.
// Concurrent searches against one handle are safe; the lock only
// guards mutation.
type Registry struct {
	mu      sync.Mutex
	store   driven.IndexStore
	max     int
	handles map[string]*registryEntry
	order   *list.List // front = most recently used

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

type registryEntry struct {
	handle  driven.IndexHandle
	state   driven.OpenState
	element *list.Element
}

// NewRegistry creates a handle registry over the index store.
// maxOpen <= 0 selects DefaultMaxOpenHandles.
func NewRegistry(store driven.IndexStore, maxOpen int) *Registry {
	if maxOpen <= 0 {
		maxOpen = DefaultMaxOpenHandles
	}
	return &Registry{
		store:   store,
		max:     maxOpen,
		handles: make(map[string]*registryEntry),
		order:   list.New(),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Handle returns the cached handle for sessionID, opening it if needed.
// The returned OpenState reflects the original open, not cache hits.
func (r *Registry) Handle(ctx context.Context, sessionID string) (driven.IndexHandle, driven.OpenState, error) {
	r.mu.Lock()
	if entry, ok := r.handles[sessionID]; ok {
		r.order.MoveToFront(entry.element)
		handle, state := entry.handle, entry.state
		r.mu.Unlock()
		return handle, state, nil
	}
	r.mu.Unlock()

	// Open outside the registry lock; OpenOrCreate reads from disk.
	handle, state, err := r.store.OpenOrCreate(ctx, sessionID)
	if err != nil {
		return nil, state, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have opened the same session meanwhile.
	if entry, ok := r.handles[sessionID]; ok {
		r.order.MoveToFront(entry.element)
		handle.Close()
		return entry.handle, entry.state, nil
	}

	entry := &registryEntry{handle: handle, state: state}
	entry.element = r.order.PushFront(sessionID)
	r.handles[sessionID] = entry

	for len(r.handles) > r.max {
		r.evictOldest()
	}

	return handle, state, nil
}

// Lock returns the mutex serialising mutation for a session. Callers
// hold it across ingest-and-persist so a session's files are only ever
// written by one goroutine.
func (r *Registry) Lock(sessionID string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()

	lock, ok := r.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[sessionID] = lock
	}
	return lock
}

// Forget drops and closes the cached handle for a session. Called on
// eviction so a stale handle cannot resurrect deleted files.
func (r *Registry) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.handles[sessionID]
	if !ok {
		return
	}
	r.order.Remove(entry.element)
	delete(r.handles, sessionID)
	if err := entry.handle.Close(); err != nil {
		logger.Warn("closing handle for session %s: %v", sessionID, err)
	}
}

// Close releases every cached handle.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, entry := range r.handles {
		if err := entry.handle.Close(); err != nil {
			logger.Warn("closing handle for session %s: %v", id, err)
		}
	}
	r.handles = make(map[string]*registryEntry)
	r.order.Init()
	return nil
}

// Len returns the number of cached handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// evictOldest drops the least recently used handle from the cache
// without closing it: a caller that obtained the handle before
// eviction may still be searching it. The handle holds no OS
// resources, so its memory is reclaimed once the last holder is done.
// Caller must hold r.mu.
func (r *Registry) evictOldest() {
	back := r.order.Back()
	if back == nil {
		return
	}
	sessionID := back.Value.(string)
	r.order.Remove(back)
	delete(r.handles, sessionID)

	logger.Debug("Evicting cached index handle for session %s", sessionID)
}
