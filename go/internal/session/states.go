package session

// State is the single source of truth for where a session is.
type State string

const (
	StateIdle           State = "idle"
	StateCountdown      State = "countdown"
	StateRoundActive    State = "round_active"
	StateRoundResolving State = "round_resolving"
	StateRoundResolved  State = "round_resolved"
	StateSummaryShown   State = "summary_shown"
)

// transitions lists the legal successors of every state. Restart may enter
// Countdown from anywhere, and failures fall back to Idle. A resolved round
// never goes back to RoundResolving.
var transitions = map[State][]State{
	StateIdle:           {StateCountdown},
	StateCountdown:      {StateRoundActive, StateCountdown, StateIdle},
	StateRoundActive:    {StateRoundResolving, StateCountdown, StateIdle},
	StateRoundResolving: {StateRoundResolved, StateCountdown, StateIdle},
	StateRoundResolved:  {StateRoundActive, StateSummaryShown, StateCountdown, StateIdle},
	StateSummaryShown:   {StateCountdown, StateIdle},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
