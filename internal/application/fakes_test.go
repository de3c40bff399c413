package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hms-project/hmsctl/internal/domain"
	"github.com/hms-project/hmsctl/internal/ports"
)

type inMemoryStore struct {
	mu     sync.Mutex
	values map[string]string
	// failWrites makes Set, Remove and Apply fail without touching values.
	failWrites bool
	// failSetKeys makes Set fail for the listed keys only.
	failSetKeys map[string]bool
	applied     int
}

func newInMemoryStore(values map[string]string) *inMemoryStore {
	if values == nil {
		values = map[string]string{}
	}
	return &inMemoryStore{values: values}
}

var errStoreUnavailable = errors.New("store unavailable")

func (s *inMemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.values[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return value, nil
}

func (s *inMemoryStore) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites || s.failSetKeys[key] {
		return errStoreUnavailable
	}
	s.values[key] = value
	return nil
}

func (s *inMemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites {
		return errStoreUnavailable
	}
	delete(s.values, key)
	return nil
}

func (s *inMemoryStore) snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.values))
	for key, value := range s.values {
		out[key] = value
	}
	return out
}

// batchStore counts Apply calls so tests can check that a group of writes lands as one unit.
type batchStore struct {
	*inMemoryStore
}

func (s batchStore) Apply(_ context.Context, mutation ports.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites {
		return errStoreUnavailable
	}
	s.applied++
	for key, value := range mutation.Set {
		s.values[key] = value
	}
	for _, key := range mutation.Remove {
		delete(s.values, key)
	}
	return nil
}

type staticSession struct {
	authenticated bool
	role          domain.Role
}

func (s staticSession) IsAuthenticated() bool    { return s.authenticated }
func (s staticSession) CurrentRole() domain.Role { return s.role }

var patientSession = staticSession{authenticated: true, role: domain.RolePatient}

// manualClock hands out tickers that only fire when the test calls tick.
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) NewTicker(time.Duration) ports.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	ticker := &manualTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, ticker)
	return ticker
}

func (c *manualClock) tickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func (c *manualClock) lastTicker() *manualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickers[len(c.tickers)-1]
}

type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *manualTicker) C() <-chan time.Time {
	return t.ch
}

func (t *manualTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *manualTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// tick blocks until the poll loop receives it.
func (t *manualTicker) tick(at time.Time) {
	t.ch <- at
}
