package keylock

import "sync"

// Locker serializes work per integer key. The reservation engine locks per
// class so two requests for the last spot cannot both commit as confirmed;
// the membership engine locks per membership so concurrent renewals cannot
// read the same stale end date. Different keys never block each other.
type Locker struct {
	mu    sync.Mutex
	locks map[int]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *Locker {
	return &Locker{
		locks: make(map[int]*entry),
	}
}

// Lock acquires the mutex for key, creating it on first use.
func (l *Locker) Lock(key int) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key and drops the entry once nobody waits on it.
func (l *Locker) Unlock(key int) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		l.mu.Unlock()
		panic("keylock: unlock of unheld key")
	}
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()

	e.mu.Unlock()
}
