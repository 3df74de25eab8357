package lifecycle

import "testing"

func TestStateTransitions(t *testing.T) {
	s := NewState()
	if s.Phase() != Starting {
		t.Fatalf("initial phase = %s, want starting", s.Phase())
	}

	s.Set(Ready)
	if s.Phase() != Ready {
		t.Fatalf("phase = %s, want ready", s.Phase())
	}

	s.Set(Failed)
	if s.Phase() != Failed {
		t.Fatalf("phase = %s, want failed", s.Phase())
	}
}

func TestPhaseString(t *testing.T) {
	tests := map[Phase]string{
		Starting: "starting",
		Ready:    "ready",
		Failed:   "failed",
	}
	for phase, want := range tests {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
