package record

import (
	"errors"
	"sync"

	"github.com/hupe1980/councilmesh/core"
)

// ErrMissingID rejects writes of records without an identity.
var ErrMissingID = errors.New("record: missing id")

// InMemoryStore is a naive process-local RecordStore. Records are grouped
// per type in insertion order, matching the append-only contract; there is
// no delete. Reads return defensive copies so callers cannot mutate stored
// state. Concurrency: protected by RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[core.RecordType][]core.Record
}

var _ core.RecordStore = (*InMemoryStore)(nil)

// NewInMemoryStore returns an empty in-memory record store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[core.RecordType][]core.Record)}
}

// Write appends a record under its type.
func (s *InMemoryStore) Write(rec core.Record) error {
	if rec.ID == "" {
		return ErrMissingID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Type] = append(s.records[rec.Type], cloneRecord(rec))
	return nil
}

// List returns all records of the given type in insertion order.
func (s *InMemoryStore) List(typ core.RecordType) ([]core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.records[typ]
	out := make([]core.Record, len(recs))
	for i, rec := range recs {
		out[i] = cloneRecord(rec)
	}
	return out, nil
}

func cloneRecord(rec core.Record) core.Record {
	cp := rec
	if rec.Metadata != nil {
		cp.Metadata = make(map[string]any, len(rec.Metadata))
		for k, v := range rec.Metadata {
			cp.Metadata[k] = v
		}
	}
	return cp
}
