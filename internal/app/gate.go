package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/neomorfeo/workshops/internal/domain"
)

// authorize is the single capability check every mutating admin operation
// passes before touching shared state. Anonymous callers are rejected first.
func authorize(who domain.Identity, role domain.Role) error {
	if who.IsAnonymous() {
		return domain.ErrUnauthenticated
	}
	if !who.HasRole(role) {
		return domain.ErrForbidden
	}
	return nil
}

// workshopLocks hands out one binary semaphore per workshop. Admissions and
// admin changes to the same workshop queue on it; different workshops never
// contend. Entries are dropped once nobody holds or waits for them.
type workshopLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

func newWorkshopLocks() *workshopLocks {
	return &workshopLocks{locks: make(map[string]*lockEntry)}
}

// acquire blocks until the workshop's lock is held or ctx is done. The
// returned release func must be called exactly once.
func (l *workshopLocks) acquire(ctx context.Context, workshopID string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[workshopID]
	if !ok {
		entry = &lockEntry{sem: semaphore.NewWeighted(1)}
		l.locks[workshopID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	if err := entry.sem.Acquire(ctx, 1); err != nil {
		l.drop(workshopID, entry)
		return nil, fmt.Errorf("%w: waiting for workshop %s: %v", domain.ErrUnavailable, workshopID, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.sem.Release(1)
			l.drop(workshopID, entry)
		})
	}, nil
}

// within runs fn while holding the workshop's lock. One deadline covers both
// the wait for the lock and fn.
func (l *workshopLocks) within(ctx context.Context, workshopID string, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	release, err := l.acquire(ctx, workshopID)
	if err != nil {
		return err
	}
	defer release()

	return asUnavailable(ctx, fn(ctx))
}

func (l *workshopLocks) drop(workshopID string, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, workshopID)
	}
}

// size returns the number of workshops with holders or waiters.
func (l *workshopLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
