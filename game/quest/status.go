package quest

// Status is the lifecycle state of a quest.
type Status string

const (
	StatusPending   Status = "pending"
	StatusOffered   Status = "offered"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
	StatusFailed    Status = "failed"
)

// transitions is the complete set of legal status moves. Anything absent,
// self-loops included, is illegal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusOffered, StatusAbandoned},
	StatusOffered:   {StatusActive, StatusAbandoned},
	StatusActive:    {StatusCompleted, StatusAbandoned, StatusFailed},
	StatusCompleted: nil,
	StatusAbandoned: {StatusOffered},
	StatusFailed:    nil,
}

// CanTransition reports whether a quest may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition applies the status change when legal and returns false otherwise.
// It performs no other side effects.
func Transition(q *Quest, to Status) bool {
	if q == nil || !CanTransition(q.Status, to) {
		return false
	}
	q.Status = to
	return true
}

// IsTerminal reports whether no further transitions can leave s except reopening.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
