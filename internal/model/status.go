package model

type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusProcessing Status = "processing"
	StatusDelivered  Status = "delivered"
	StatusFailed     Status = "failed"
)

// transitions lists, for each status, the statuses it may move to.
var transitions = map[Status][]Status{
	StatusSubmitted:  {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusDelivered, StatusFailed},
	StatusDelivered:  nil,
	StatusFailed:     nil,
}

func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := transitions[st]
	return st, ok
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Predecessors returns the statuses from which s may be entered.
func (s Status) Predecessors() []Status {
	var out []Status
	for _, from := range []Status{StatusSubmitted, StatusProcessing, StatusDelivered, StatusFailed} {
		if from.CanTransitionTo(s) {
			out = append(out, from)
		}
	}
	return out
}
