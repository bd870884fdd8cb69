package candidate

type Status string

var (
	StatusSubmitted      Status = "submitted"
	StatusStarted        Status = "started"
	StatusNoShow         Status = "no_show"
	StatusDidNotComplete Status = "did_not_complete"
	StatusCompletedMonth Status = "completed_month"
	StatusDeleted        Status = "deleted"
)

func (s Status) String() string {
	switch s {
	case StatusSubmitted, StatusStarted, StatusNoShow, StatusDidNotComplete, StatusCompletedMonth, StatusDeleted:
		return string(s)
	default:
		return ""
	}
}

// Terminal statuses admit no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompletedMonth || s == StatusDeleted
}

// transitions is the exhaustive edge table of the pipeline state machine.
// no_show and did_not_complete may re-enter started after a correction.
var transitions = map[Status][]Status{
	StatusSubmitted:      {StatusStarted, StatusNoShow, StatusDeleted},
	StatusStarted:        {StatusCompletedMonth, StatusDidNotComplete, StatusDeleted},
	StatusNoShow:         {StatusStarted, StatusDeleted},
	StatusDidNotComplete: {StatusStarted, StatusDeleted},
	StatusCompletedMonth: {},
	StatusDeleted:        {},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
