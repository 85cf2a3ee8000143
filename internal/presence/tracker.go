// Package presence tracks the operator's reachability as reported by the
// messaging backend.
package presence

// State classifies the operator's reachability. It is derived only from
// explicit status events; a live connection alone says nothing about the
// operator.
type State int

const (
	Unknown State = iota
	Online
	Offline
)

func (s State) String() string {
	switch s {
	case Online:
		return "online"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

// Transition is a change of operator reachability.
type Transition struct {
	From State
	To   State
}

// Tracker holds the reachability state for a single fixed subject.
type Tracker struct {
	subjectID string
	state     State
}

// NewTracker creates a tracker for the given operator identifier.
func NewTracker(subjectID string) *Tracker {
	return &Tracker{subjectID: subjectID}
}

// State returns the current reachability classification.
func (t *Tracker) State() State { return t.state }

// SubjectID returns the tracked operator identifier.
func (t *Tracker) SubjectID() string { return t.subjectID }

// Observe applies a status event and reports the resulting transition.
// Events for other subjects and repeat observations report false, which is
// what makes presence announcements one-time.
func (t *Tracker) Observe(subjectID string, online bool) (Transition, bool) {
	if subjectID != t.subjectID {
		return Transition{}, false
	}

	next := Offline
	if online {
		next = Online
	}
	if next == t.state {
		return Transition{}, false
	}

	tr := Transition{From: t.state, To: next}
	t.state = next
	return tr, true
}
