package cypher

// State is a step of the synthesis loop.
type State int

const (
	// Drafting produces the initial candidate from the question.
	Drafting State = iota
	// Validating asks the validator to review and repair the candidate.
	Validating
	// Corrected means the validator reported no errors.
	Corrected
	// Exhausted means the round budget ran out or a fatal round stopped the
	// loop; the last candidate is used as is.
	Exhausted
)

func (s State) String() string {
	switch s {
	case Drafting:
		return "drafting"
	case Validating:
		return "validating"
	case Corrected:
		return "corrected"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the loop stops in s.
func (s State) Terminal() bool {
	return s == Corrected || s == Exhausted
}

// Round is the outcome of one step, fed to Next.
type Round struct {
	// Number is the 1-based attempt within the current state.
	Number int
	// Max bounds the attempts of each state.
	Max int
	// Errors is the error list carried after the step.
	Errors []string
	// Err is set when the step's call failed.
	Err *RoundError
}

// Next is the transition function of the synthesis loop.
func Next(s State, r Round) State {
	switch s {
	case Drafting:
		if r.Err == nil {
			if r.Max <= 0 {
				return Exhausted
			}
			return Validating
		}
		if r.Err.Kind == KindFatal || r.Number >= r.Max {
			return Exhausted
		}
		return Drafting

	case Validating:
		if r.Err != nil && r.Err.Kind == KindFatal {
			return Exhausted
		}
		if r.Err == nil && len(r.Errors) == 0 {
			return Corrected
		}
		if r.Number >= r.Max {
			return Exhausted
		}
		return Validating

	default:
		return s
	}
}
