package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/kozaktomas/face-tracker/internal/database/memory"
	"github.com/kozaktomas/face-tracker/internal/geometry"
)

func TestManager_CreateAndGet(t *testing.T) {
	m := NewManager(testTrackerConfig(), nil)

	s, err := m.Create("Front Door", -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name != "front-door" {
		t.Errorf("expected normalized name, got %q", s.Name)
	}
	if s.Info().MaxMissed != 13 {
		t.Errorf("expected default max missed 13, got %d", s.Info().MaxMissed)
	}

	for _, key := range []string{s.ID, "front-door", "Front  Door"} {
		got, err := m.Get(key)
		if err != nil {
			t.Errorf("Get(%q): unexpected error: %v", key, err)
			continue
		}
		if got != s {
			t.Errorf("Get(%q) returned a different session", key)
		}
	}

	if _, err := m.Get("back-door"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestManager_CreateErrors(t *testing.T) {
	m := NewManager(testTrackerConfig(), nil)
	if _, err := m.Create("garage", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := m.Create("Garage", 5); !errors.Is(err, ErrNameTaken) {
		t.Errorf("expected ErrNameTaken, got %v", err)
	}
	if _, err := m.Create("  ", 5); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
}

func TestManager_IndependentTrackers(t *testing.T) {
	m := NewManager(testTrackerConfig(), nil)
	a, _ := m.Create("a", -1)
	b, _ := m.Create("b", -1)

	a.Process(testContext(t), nil)
	a.Process(testContext(t), []geometry.BBox{box(0, 0, 10, 10), box(50, 50, 60, 60)})
	b.Process(testContext(t), []geometry.BBox{box(0, 0, 10, 10)})

	if got := a.Info(); got.TotalSeen != 2 || got.Frames != 2 {
		t.Errorf("unexpected info for a: %+v", got)
	}
	if got := b.Info(); got.TotalSeen != 1 || got.Frames != 1 {
		t.Errorf("unexpected info for b: %+v", got)
	}
}

func TestManager_ListAndDelete(t *testing.T) {
	m := NewManager(testTrackerConfig(), nil)
	first, _ := m.Create("first", -1)
	m.Create("second", -1)

	if infos := m.List(); len(infos) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(infos))
	}

	ch := first.AddListener()
	if err := m.Delete("first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drain(ch)
	if _, ok := <-ch; ok {
		t.Error("expected listener to be closed on delete")
	}

	infos := m.List()
	if len(infos) != 1 || infos[0].Name != "second" {
		t.Errorf("unexpected sessions after delete: %+v", infos)
	}
	if err := m.Delete("first"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// The name is free again.
	if _, err := m.Create("first", -1); err != nil {
		t.Errorf("expected name to be reusable, got %v", err)
	}
}

func TestManager_DeleteRacingCreate(t *testing.T) {
	m := NewManager(testTrackerConfig(), nil)

	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("cam-%d", i)
		old, err := m.Create(name, -1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var wg sync.WaitGroup
		var created *Session
		wg.Add(3)
		for range_i := 0; range_i < 2; range_i++ {
			go func() {
				defer wg.Done()
				m.Delete(name)
			}()
		}
		go func() {
			defer wg.Done()
			if s, err := m.Create(name, -1); err == nil {
				created = s
			}
		}()
		wg.Wait()

		if _, err := m.Get(old.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: expected old session to be gone, got %v", name, err)
		}

		// A session is either reachable by both id and name or by neither.
		byName, nameErr := m.Get(name)
		listed := len(m.List())
		if created == nil {
			if !errors.Is(nameErr, ErrNotFound) || listed != 0 {
				t.Fatalf("%s: expected no sessions, got name err %v and %d listed", name, nameErr, listed)
			}
			continue
		}
		byID, idErr := m.Get(created.ID)
		switch {
		case nameErr == nil && idErr == nil:
			if byName != created || byID != created || listed != 1 {
				t.Fatalf("%s: name and id resolve to different sessions", name)
			}
		case errors.Is(nameErr, ErrNotFound) && errors.Is(idErr, ErrNotFound):
			if listed != 0 {
				t.Fatalf("%s: expected no sessions, got %d", name, listed)
			}
		default:
			t.Fatalf("%s: session orphaned (name err %v, id err %v)", name, nameErr, idErr)
		}
		m.Delete(name)
	}
}

func TestManager_DeleteDropsStoredEvents(t *testing.T) {
	store := memory.NewTrackEventStore(10)
	m := NewManager(testTrackerConfig(), store)
	a, _ := m.Create("a", -1)
	b, _ := m.Create("b", -1)

	a.Process(testContext(t), []geometry.BBox{box(0, 0, 10, 10)})
	b.Process(testContext(t), []geometry.BBox{box(0, 0, 10, 10)})
	if n := store.Len(); n != 2 {
		t.Fatalf("expected 2 stored events, got %d", n)
	}

	if err := m.Delete("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events, _ := store.ListEvents(testContext(t), a.ID, 10)
	if len(events) != 0 {
		t.Errorf("expected events of deleted session to be dropped, got %+v", events)
	}
	if n := store.Len(); n != 1 {
		t.Errorf("expected other session's events kept, got %d", n)
	}
}

func TestManager_Close(t *testing.T) {
	m := NewManager(testTrackerConfig(), nil)
	s, _ := m.Create("cam", -1)
	ch := s.AddListener()

	m.Close()

	drain(ch)
	if _, ok := <-ch; ok {
		t.Error("expected listener closed")
	}
	if len(m.List()) != 0 {
		t.Error("expected no sessions after Close")
	}
}

// testContext returns a context that is canceled when the test finishes,
// mirroring testing.T.Context (Go 1.24+) for older toolchains.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
