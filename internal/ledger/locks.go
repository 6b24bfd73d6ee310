package ledger

import (
	"slices"
	"sync"
)

// lockTable hands out one mutex per account number. Entries are reference
// counted so the table only holds accounts that are in use.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*accountLock
}

type accountLock struct {
	sync.Mutex
	refs int
}

// acquire locks every distinct number in ascending order and returns the
// release func. Ordering makes opposite transfers between the same pair
// unable to deadlock.
func (t *lockTable) acquire(numbers ...string) (release func()) {
	keys := slices.Clone(numbers)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*accountLock, 0, len(keys))
	for _, k := range keys {
		t.mu.Lock()
		if t.locks == nil {
			t.locks = make(map[string]*accountLock)
		}
		l, ok := t.locks[k]
		if !ok {
			l = &accountLock{}
			t.locks[k] = l
		}
		l.refs++
		t.mu.Unlock()

		l.Lock()
		held = append(held, l)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			t.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(t.locks, keys[i])
			}
			t.mu.Unlock()
		}
	}
}

func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
