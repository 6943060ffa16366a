package game

import "sync"

// lockSet is the per-game-number advisory mutual exclusion used by every
// operation that can trigger teardown. It is instance-owned state: each
// Service gets its own, and it resets on restart.
type lockSet struct {
	mu   sync.Mutex
	held map[int64]struct{}
}

func newLockSet() *lockSet {
	return &lockSet{held: make(map[int64]struct{})}
}

// tryAcquire reports whether the caller now holds the lock for number.
func (l *lockSet) tryAcquire(number int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[number]; ok {
		return false
	}
	l.held[number] = struct{}{}
	return true
}

func (l *lockSet) release(number int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, number)
}
