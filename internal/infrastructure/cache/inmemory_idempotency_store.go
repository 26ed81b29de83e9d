package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
)

const defaultSweepInterval = 5 * time.Minute

// expiringSet is a mutex-guarded set of keys that each expire after their own TTL.
// It backs both the in-process idempotency store and the in-process draft locker.
type expiringSet struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

func newExpiringSet() *expiringSet {
	return &expiringSet{keys: make(map[string]time.Time), now: time.Now}
}

// add inserts key unless a live entry exists; it reports whether it inserted
func (s *expiringSet) add(key string, ttl time.Duration) bool {
	_, ok := s.claim(key, ttl)
	return ok
}

// claim is add that also returns the new entry's expiry, which identifies
// this holder to removeOwned.
func (s *expiringSet) claim(key string, ttl time.Duration) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.keys[key]; ok && now.Before(exp) {
		return time.Time{}, false
	}
	exp := now.Add(ttl)
	s.keys[key] = exp
	return exp, true
}

func (s *expiringSet) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.keys[key]
	return ok && s.now().Before(exp)
}

func (s *expiringSet) remove(key string) {
	s.mu.Lock()
	delete(s.keys, key)
	s.mu.Unlock()
}

// removeOwned deletes key only if it still carries expiry exp
func (s *expiringSet) removeOwned(key string, exp time.Time) {
	s.mu.Lock()
	if cur, ok := s.keys[key]; ok && cur.Equal(exp) {
		delete(s.keys, key)
	}
	s.mu.Unlock()
}

func (s *expiringSet) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, exp := range s.keys {
		if !now.Before(exp) {
			delete(s.keys, key)
		}
	}
}

func (s *expiringSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// InMemoryIdempotencyStore keeps processed keys in process memory.
// Keys are not shared between instances; use the Redis store when running more than one.
type InMemoryIdempotencyStore struct {
	set       *expiringSet
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a store and starts its expiry sweeper
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return newInMemoryIdempotencyStore(defaultSweepInterval)
}

func newInMemoryIdempotencyStore(sweepEvery time.Duration) *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		set:  newExpiringSet(),
		stop: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweepLoop(sweepEvery)
	return s
}

// MarkProcessed records key for ttl. It returns false when key is already recorded.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	return s.set.add(key, ttl), nil
}

// IsProcessed reports whether key is recorded and not yet expired
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	return s.set.has(key), nil
}

// Forget removes key so the request it guards can be retried
func (s *InMemoryIdempotencyStore) Forget(_ context.Context, key string) error {
	s.set.remove(key)
	return nil
}

// Size returns the number of stored keys, expired ones included until the next sweep
func (s *InMemoryIdempotencyStore) Size() int {
	return s.set.len()
}

// Close stops the sweeper. It is safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) sweepLoop(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.set.sweep()
		}
	}
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
