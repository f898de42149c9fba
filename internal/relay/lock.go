package relay

import "sync"

// recordLocks serializes read-modify-write cycles per record id so two
// webhook deliveries for the same batch cannot interleave their store reads
// and clobber each other's appended fields. Distinct records proceed
// concurrently. Entries are refcounted and removed once idle.
type recordLocks struct {
	mu    sync.Mutex
	locks map[string]*recordLock
}

type recordLock struct {
	mu   sync.Mutex
	refs int
}

func newRecordLocks() *recordLocks {
	return &recordLocks{locks: make(map[string]*recordLock)}
}

// Lock acquires the mutex for recordID and returns its release func.
func (l *recordLocks) Lock(recordID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[recordID]
	if !ok {
		entry = &recordLock{}
		l.locks[recordID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, recordID)
		}
		l.mu.Unlock()
	}
}
