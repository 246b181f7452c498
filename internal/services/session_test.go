package services

import (
	"sync"
	"testing"
)

func TestSessionStarted(t *testing.T) {
	var s IngestionSession
	if s.Started() {
		t.Fatalf("zero session must not be started")
	}
	s.BoundaryStart = 1
	if !s.Started() {
		t.Fatalf("session with start boundary must be started")
	}
}

func TestMemorySessionStore_GetPutReset(t *testing.T) {
	st := NewMemorySessionStore()

	if got := st.Get(1); got.Started() {
		t.Fatalf("fresh store must return zero session, got %+v", got)
	}

	st.Put(1, IngestionSession{BoundaryStart: 10, SourceChannel: -5})
	got := st.Get(1)
	if got.BoundaryStart != 10 || got.SourceChannel != -5 {
		t.Fatalf("Get = %+v; want stored session", got)
	}

	// Sessions are keyed per operator.
	if other := st.Get(2); other.Started() {
		t.Fatalf("operator 2 must have no session, got %+v", other)
	}

	st.Reset(1)
	if got := st.Get(1); got.Started() {
		t.Fatalf("session must be gone after Reset, got %+v", got)
	}
}

func TestMemorySessionStore_ConcurrentAccess(t *testing.T) {
	st := NewMemorySessionStore()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				st.Put(id, IngestionSession{BoundaryStart: j + 1})
				st.Get(id)
				st.Reset(id)
			}
		}(int64(i % 4))
	}
	wg.Wait()
}
