package session

// State is a session lifecycle state. States only ever move forward, so the
// numeric order below is the transition order.
type State int

const (
	StateQueued State = iota
	StateAwaitingIdentifier
	StateAwaitingDeposit
	StateAwaitingRoundCount
	StateAwaitingParameters
	StateAwaitingConfirmation
	StateInProgress
	StateAwaitingFeedback
	StateClosed
	StateCancelled
)

var stateNames = map[State]string{
	StateQueued:               "queued",
	StateAwaitingIdentifier:   "awaiting_identifier",
	StateAwaitingDeposit:      "awaiting_deposit",
	StateAwaitingRoundCount:   "awaiting_round_count",
	StateAwaitingParameters:   "awaiting_parameters",
	StateAwaitingConfirmation: "awaiting_confirmation",
	StateInProgress:           "in_progress",
	StateAwaitingFeedback:     "awaiting_feedback",
	StateClosed:               "closed",
	StateCancelled:            "cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateCancelled
}
