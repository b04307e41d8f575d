package record

import (
	"sync"
	"testing"

	"github.com/hupe1980/councilmesh/core"
)

func TestInMemoryStore_WriteAndList(t *testing.T) {
	s := NewInMemoryStore()
	recs, err := s.List(core.RecordDecision)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty store, got %d records", len(recs))
	}

	first := core.NewRecord(core.RecordDecision, "tax reform", "cut rates", nil)
	second := core.NewRecord(core.RecordDecision, "pilot program", "launch it", nil)
	if err := s.Write(first); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := s.Write(second); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	recs, _ = s.List(core.RecordDecision)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	// insertion order preserved
	if recs[0].Topic != "tax reform" || recs[1].Topic != "pilot program" {
		t.Fatalf("order not preserved: %q, %q", recs[0].Topic, recs[1].Topic)
	}
	// types are isolated
	other, _ := s.List(core.RecordLearning)
	if len(other) != 0 {
		t.Fatalf("expected no learnings, got %d", len(other))
	}
}

func TestInMemoryStore_RejectsMissingID(t *testing.T) {
	s := NewInMemoryStore()
	if err := s.Write(core.Record{Type: core.RecordDecision}); err != ErrMissingID {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestInMemoryStore_CopyIsolation(t *testing.T) {
	s := NewInMemoryStore()
	rec := core.NewRecord(core.RecordLearning, "t", "c", map[string]any{"k": "v"})
	if err := s.Write(rec); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	recs, _ := s.List(core.RecordLearning)
	recs[0].Metadata["k"] = "mutated"
	again, _ := s.List(core.RecordLearning)
	if again[0].Metadata["k"] != "v" {
		t.Fatalf("expected copy isolation, got %v", again[0].Metadata["k"])
	}
}

func TestInMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewInMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Write(core.NewRecord(core.RecordControversy, "t", "c", nil))
			_, _ = s.List(core.RecordControversy)
		}()
	}
	wg.Wait()
	recs, _ := s.List(core.RecordControversy)
	if len(recs) != 20 {
		t.Fatalf("expected 20 records, got %d", len(recs))
	}
}
