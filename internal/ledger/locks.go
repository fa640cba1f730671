package ledger

import "sync"

// itemLocks hands out one mutex per UPC. Entries are dropped once nobody
// holds or waits on them.
type itemLocks struct {
	mu    sync.Mutex
	locks map[uint64]*itemLock
}

type itemLock struct {
	mu   sync.Mutex
	refs int
}

func (l *itemLocks) lock(upc uint64) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uint64]*itemLock)
	}
	il, ok := l.locks[upc]
	if !ok {
		il = &itemLock{}
		l.locks[upc] = il
	}
	il.refs++
	l.mu.Unlock()

	il.mu.Lock()
	return func() {
		il.mu.Unlock()

		l.mu.Lock()
		il.refs--
		if il.refs == 0 {
			delete(l.locks, upc)
		}
		l.mu.Unlock()
	}
}

// held reports how many UPCs currently have a lock entry.
func (l *itemLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
