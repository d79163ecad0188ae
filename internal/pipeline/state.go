package pipeline

// State is a step of the batch state machine.
type State int

const (
	StateInit State = iota
	StateProviderSelected
	StateScanning
	StateAggregating
	StateClassifying
	StateReporting
	StateDone
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateProviderSelected:
		return "provider_selected"
	case StateScanning:
		return "scanning"
	case StateAggregating:
		return "aggregating"
	case StateClassifying:
		return "classifying"
	case StateReporting:
		return "reporting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// transitions lists the legal successors of each state. Failed is reachable
// only before aggregation starts; every later stage always completes.
var transitions = map[State][]State{
	StateInit:             {StateProviderSelected, StateDone, StateFailed},
	StateProviderSelected: {StateScanning, StateFailed},
	StateScanning:         {StateAggregating, StateFailed},
	StateAggregating:      {StateClassifying},
	StateClassifying:      {StateReporting},
	StateReporting:        {StateDone},
}

// CanTransition reports whether moving from s to next is legal.
func (s State) CanTransition(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s is Done or Failed.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}
