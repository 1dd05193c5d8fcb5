package state

import (
	"sync"
	"testing"
	"time"
)

const awaitInput State = "AWAIT_INPUT"

func TestManagerDefaultsToIdle(t *testing.T) {
	m := NewManager()
	if got := m.Get(1); got != StateIdle {
		t.Fatalf("Get = %s", got)
	}
	if m.Active(1) {
		t.Fatal("fresh key must not be active")
	}
}

func TestManagerSetAndReset(t *testing.T) {
	m := NewManager()
	m.Set(1, awaitInput)
	if !m.Active(1) || m.Get(1) != awaitInput {
		t.Fatalf("state = %s", m.Get(1))
	}
	if m.Get(2) != StateIdle {
		t.Fatal("keys must be independent")
	}
	m.Reset(1)
	if m.Active(1) {
		t.Fatal("reset must return to idle")
	}
}

func TestManagerTransition(t *testing.T) {
	m := NewManager()
	if m.Transition(1, awaitInput, StateIdle) {
		t.Fatal("transition from wrong state must fail")
	}
	if !m.Transition(1, StateIdle, awaitInput) {
		t.Fatal("transition from idle must succeed")
	}
	if !m.Transition(1, awaitInput, StateIdle) || m.Active(1) {
		t.Fatal("transition back to idle failed")
	}
}

func TestManagerTransitionIsExclusive(t *testing.T) {
	m := NewManager()
	m.Set(1, awaitInput)
	var (
		wg  sync.WaitGroup
		won sync.Map
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if m.Transition(1, awaitInput, StateIdle) {
				won.Store(i, true)
			}
		}(i)
	}
	wg.Wait()
	n := 0
	won.Range(func(_, _ any) bool { n++; return true })
	if n != 1 {
		t.Fatalf("%d goroutines won the transition", n)
	}
}

func TestManagerTTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager(WithTTL(time.Minute), WithClock(func() time.Time { return now }))
	m.Set(1, awaitInput)
	now = now.Add(2 * time.Minute)
	if m.Active(1) {
		t.Fatal("state must expire after ttl")
	}
}
