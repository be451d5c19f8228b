package repository

import (
	"context"
	"sync"
)

// LockTable serialises work per entity id. Operations on different ids run
// in parallel; operations on the same id queue behind each other. Entries are
// reference counted and dropped once nobody holds or waits for them.
type LockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// NewLockTable returns an empty table.
func NewLockTable() *LockTable {
	return &LockTable{entries: make(map[string]*lockEntry)}
}

// Acquire blocks until the lock for id is held or ctx is done. The returned
// release func is idempotent.
func (l *LockTable) Acquire(ctx context.Context, id string) (release func(), err error) {
	l.mu.Lock()
	e, ok := l.entries[id]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.unref(id, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.unref(id, e)
		})
	}, nil
}

func (l *LockTable) unref(id string, e *lockEntry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
	l.mu.Unlock()
}

// Len reports how many ids currently have holders or waiters.
func (l *LockTable) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
