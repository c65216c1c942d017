package checkout

type Status string

const (
	StatusIdle            Status = "IDLE"
	StatusAwaitingAuth    Status = "AWAITING_AUTH"
	StatusAwaitingAddress Status = "AWAITING_ADDRESS"
	StatusSubmitting      Status = "SUBMITTING"
	StatusSuccess         Status = "SUCCESS"
	StatusFailed          Status = "FAILED"
)

var transitions = map[Status][]Status{
	StatusIdle:            {StatusAwaitingAuth, StatusAwaitingAddress},
	StatusAwaitingAuth:    {StatusAwaitingAddress, StatusIdle},
	StatusAwaitingAddress: {StatusSubmitting, StatusAwaitingAuth, StatusIdle},
	StatusSubmitting:      {StatusSuccess, StatusFailed, StatusAwaitingAuth},
	StatusFailed:          {StatusSubmitting, StatusAwaitingAddress, StatusAwaitingAuth, StatusIdle},
	StatusSuccess:         {StatusIdle},
}

// CanTransitionTo reports whether the funnel allows moving from one status to
// another.
func CanTransitionTo(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal is true once the order has been accepted. Failed is not terminal:
// it accepts a retry.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess
}

// String representation (for logging)
func (s Status) String() string {
	return string(s)
}
