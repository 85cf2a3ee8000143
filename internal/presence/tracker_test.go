package presence

import "testing"

func TestObserveFirstStatus(t *testing.T) {
	tracker := NewTracker("operator")

	tr, changed := tracker.Observe("operator", true)
	if !changed {
		t.Fatal("Expected first status event to change state")
	}
	if tr.From != Unknown || tr.To != Online {
		t.Errorf("Expected Unknown -> Online, got %s -> %s", tr.From, tr.To)
	}
	if tracker.State() != Online {
		t.Errorf("Expected state Online, got %s", tracker.State())
	}
}

func TestObserveRepeatStatusIsSuppressed(t *testing.T) {
	tracker := NewTracker("operator")

	if _, changed := tracker.Observe("operator", false); !changed {
		t.Fatal("Expected first offline event to change state")
	}
	if _, changed := tracker.Observe("operator", false); changed {
		t.Error("Expected repeated offline event to be suppressed")
	}
}

func TestObserveForeignSubjectIgnored(t *testing.T) {
	tracker := NewTracker("operator")

	if _, changed := tracker.Observe("somebody-else", true); changed {
		t.Error("Expected status for a foreign subject to be ignored")
	}
	if tracker.State() != Unknown {
		t.Errorf("Expected state to stay Unknown, got %s", tracker.State())
	}
}

func TestObserveTransitionTable(t *testing.T) {
	tests := []struct {
		name   string
		events []bool
		want   State
	}{
		{"online then offline", []bool{true, false}, Offline},
		{"offline then online", []bool{false, true}, Online},
		{"flapping ends online", []bool{true, false, true}, Online},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker("operator")
			for _, online := range tt.events {
				tracker.Observe("operator", online)
			}
			if tracker.State() != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, tracker.State())
			}
		})
	}
}
