package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/hms-project/hmsctl/internal/domain"
	"github.com/hms-project/hmsctl/internal/ports"
)

const KeyIgnoredExpiredTaskIDs = "ignoredExpiredTaskIds"

// ExclusionStore is a persisted set of ids whose reminders were dismissed.
type ExclusionStore struct {
	store  ports.KeyValueStore
	logger *slog.Logger

	mu      sync.Mutex
	unsaved []int64
}

func NewExclusionStore(store ports.KeyValueStore, logger *slog.Logger) *ExclusionStore {
	return &ExclusionStore{store: store, logger: loggerOrDiscard(logger)}
}

// Load never fails: an absent or corrupt value reads as an empty set.
func (s *ExclusionStore) Load(ctx context.Context) domain.IDSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := domain.NewIDSet(s.persisted(ctx)...)
	for _, id := range s.unsaved {
		set[id] = struct{}{}
	}
	return set
}

// Add keeps the id for this process even when it cannot be persisted.
func (s *ExclusionStore) Add(ctx context.Context, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.persisted(ctx)
	ids = appendUnique(ids, s.unsaved...)
	ids = appendUnique(ids, id)

	payload, err := json.Marshal(ids)
	if err == nil {
		err = s.store.Set(ctx, KeyIgnoredExpiredTaskIDs, string(payload))
	}
	if err != nil {
		s.logger.Warn("persist ignored ids failed", "id", id, "error", err)
		s.unsaved = appendUnique(s.unsaved, id)
		return
	}

	s.unsaved = nil
}

func (s *ExclusionStore) Contains(ctx context.Context, id int64) bool {
	return s.Load(ctx).Has(id)
}

func (s *ExclusionStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unsaved = nil
	if err := s.store.Remove(ctx, KeyIgnoredExpiredTaskIDs); err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
		s.logger.Warn("clear ignored ids failed", "error", err)
	}
}

func (s *ExclusionStore) persisted(ctx context.Context) []int64 {
	raw, err := s.store.Get(ctx, KeyIgnoredExpiredTaskIDs)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			s.logger.Warn("read ignored ids failed", "error", err)
		}
		return nil
	}

	return parseIDList(raw)
}

// parseIDList keeps the integer elements of a JSON array and drops everything else.
// Anything after the array makes the whole value unparsable.
func parseIDList(raw string) []int64 {
	decoder := json.NewDecoder(bytes.NewReader([]byte(raw)))
	decoder.UseNumber()

	var elements []any
	if err := decoder.Decode(&elements); err != nil {
		return nil
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil
	}

	ids := make([]int64, 0, len(elements))
	for _, element := range elements {
		number, ok := element.(json.Number)
		if !ok {
			continue
		}
		if id, ok := integerValue(number); ok {
			ids = appendUnique(ids, id)
		}
	}
	return ids
}

// integerValue accepts integral numbers written with a fraction or exponent, like 42.0.
func integerValue(number json.Number) (int64, bool) {
	if id, err := number.Int64(); err == nil {
		return id, true
	}
	value, err := number.Float64()
	if err != nil || value != math.Trunc(value) || math.Abs(value) > 1<<53 {
		return 0, false
	}
	return int64(value), true
}

func appendUnique(ids []int64, more ...int64) []int64 {
	for _, id := range more {
		seen := false
		for _, existing := range ids {
			if existing == id {
				seen = true
				break
			}
		}
		if !seen {
			ids = append(ids, id)
		}
	}
	return ids
}
