package state

import "testing"

func TestMemoryManagerDefaultsToIdle(t *testing.T) {
	m := NewMemoryManager()
	if st := m.GetState(42); st != StateIdle {
		t.Fatalf("state = %q, want %q", st, StateIdle)
	}
	if m.InProgress(42) {
		t.Fatal("unknown user must not be in progress")
	}
}

func TestMemoryManagerTransitions(t *testing.T) {
	const awaitInput State = "await_input"

	m := NewMemoryManager()
	m.SetState(7, awaitInput)
	if st := m.GetState(7); st != awaitInput {
		t.Fatalf("state = %q, want %q", st, awaitInput)
	}
	if !m.InProgress(7) {
		t.Fatal("user with a state must be in progress")
	}
	if m.InProgress(8) {
		t.Fatal("other users must stay idle")
	}

	m.ClearState(7)
	if st := m.GetState(7); st != StateIdle {
		t.Fatalf("state after clear = %q, want %q", st, StateIdle)
	}
	if m.InProgress(7) {
		t.Fatal("cleared user must not be in progress")
	}
}

func TestMemoryManagerExplicitIdleNotInProgress(t *testing.T) {
	m := NewMemoryManager()
	m.SetState(9, StateIdle)
	if m.InProgress(9) {
		t.Fatal("idle state must not count as in progress")
	}
}
