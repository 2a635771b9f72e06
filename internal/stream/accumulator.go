package stream

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ademiltonnunes/quill-project/internal/tools"
)

// callState tracks one tool call being reassembled from fragments.
type callState struct {
	id   string
	name string
	args strings.Builder
}

// Accumulator reassembles fragmented tool-call argument JSON. Calls are
// addressable two ways because providers deliver deltas either by content
// block index or with no address at all: byIndex serves indexed deltas,
// and an unaddressed delta targets the most recently registered call.
type Accumulator struct {
	byID    map[string]*callState
	byIndex map[int]*callState
	order   []*callState
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		byID:    make(map[string]*callState),
		byIndex: make(map[int]*callState),
	}
}

// Start registers a new tool call. index < 0 means the provider gave no
// positional address. A reused id is last-write-wins: the old call is
// dropped from the result set with a warning.
func (a *Accumulator) Start(index int, id, name string) {
	if prev, ok := a.byID[id]; ok && id != "" {
		log.Warn().Str("tool_id", id).Str("tool", prev.name).Msg("tool call id reused; keeping the later call")
		for i, c := range a.order {
			if c == prev {
				a.order = append(a.order[:i], a.order[i+1:]...)
				break
			}
		}
	}

	state := &callState{id: id, name: name}
	if id != "" {
		a.byID[id] = state
	}
	if index >= 0 {
		a.byIndex[index] = state
	}
	a.order = append(a.order, state)
}

// StartComplete registers a call whose arguments arrived fully formed
// (the whole-message delivery path).
func (a *Accumulator) StartComplete(id, name, argsJSON string) {
	a.Start(-1, id, name)
	a.order[len(a.order)-1].args.WriteString(argsJSON)
}

// Append adds a JSON fragment to the call at index, or to the most
// recently started call when index < 0 or unknown.
func (a *Accumulator) Append(index int, fragment string) {
	var state *callState
	if index >= 0 {
		state = a.byIndex[index]
	}
	if state == nil {
		if len(a.order) == 0 {
			log.Warn().Int("index", index).Msg("argument fragment with no registered tool call dropped")
			return
		}
		state = a.order[len(a.order)-1]
	}
	state.args.WriteString(fragment)
}

// Finalize returns the accumulated calls in registration order. Empty
// argument strings default to "{}". Unparseable arguments are warned about
// but still returned: the execution engine re-validates before acting, so
// rejecting here would just duplicate the error path.
func (a *Accumulator) Finalize() []tools.Call {
	calls := make([]tools.Call, 0, len(a.order))
	for _, state := range a.order {
		args := state.args.String()
		if strings.TrimSpace(args) == "" {
			args = "{}"
		}
		if !json.Valid([]byte(args)) {
			log.Warn().Str("tool", state.name).Str("tool_id", state.id).Msg("accumulated tool arguments are not valid JSON")
		}
		calls = append(calls, tools.Call{ID: state.id, Name: state.name, ArgumentsJSON: args})
	}
	return calls
}
