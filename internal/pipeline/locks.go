package pipeline

import "sync"

// urlLocks serializes pipeline runs per URL. Entries are reference
// counted and removed once the last holder releases, so the map does not
// grow with the set of URLs ever seen.
type urlLocks struct {
	mu    sync.Mutex
	locks map[string]*urlLock
}

type urlLock struct {
	mu   sync.Mutex
	refs int
}

func newURLLocks() *urlLocks {
	return &urlLocks{locks: make(map[string]*urlLock)}
}

// lock blocks until the caller holds the lock for url and returns the
// release function.
func (l *urlLocks) lock(url string) func() {
	l.mu.Lock()
	entry, ok := l.locks[url]
	if !ok {
		entry = &urlLock{}
		l.locks[url] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, url)
		}
		l.mu.Unlock()
	}
}
