package orchestrator

import "fmt"

// State is a step of a request.
type State string

const (
	StateValidating       State = "validating"
	StateFormatResolving  State = "format_resolving"
	StateModelResolving   State = "model_resolving"
	StateTranscribing     State = "transcribing"
	StateFallbackRetrying State = "fallback_retrying"
	StateSucceeded        State = "succeeded"
	StateFailed           State = "failed"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

var transitions = map[State][]State{
	StateValidating:       {StateFormatResolving, StateFailed},
	StateFormatResolving:  {StateModelResolving, StateFailed},
	StateModelResolving:   {StateTranscribing, StateFailed},
	StateTranscribing:     {StateSucceeded, StateFallbackRetrying, StateFailed},
	StateFallbackRetrying: {StateModelResolving, StateFailed},
}

// CanTransition reports whether to directly follows from.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// machine tracks one request's state. It is owned by a single goroutine.
type machine struct {
	state    State
	history  []State
	fellBack bool
	onChange func(from, to State)
}

func newMachine(onChange func(from, to State)) *machine {
	return &machine{state: StateValidating, history: []State{StateValidating}, onChange: onChange}
}

// to moves to next. Illegal moves are programming errors.
func (m *machine) to(next State) {
	if !CanTransition(m.state, next) {
		panic(fmt.Sprintf("orchestrator: illegal transition %s -> %s", m.state, next))
	}
	if next == StateFallbackRetrying {
		if m.fellBack {
			panic("orchestrator: second fallback attempt")
		}
		m.fellBack = true
	}
	prev := m.state
	m.state = next
	m.history = append(m.history, next)
	if m.onChange != nil {
		m.onChange(prev, next)
	}
}

// degrade records a fallback taken while resolving the primary model.
func (m *machine) degrade() {
	m.fellBack = true
}

func (m *machine) historyStrings() []string {
	out := make([]string, len(m.history))
	for i, s := range m.history {
		out[i] = string(s)
	}
	return out
}
