package route

import (
	"fmt"

	"github.com/blade-go/blade/pkg/web"
)

// State is the dispatch state of a request.
type State uint8

const (
	StateUnmatched State = iota
	StateBefore
	StateHandler
	StateAfter
	StateDone
	StateNotFound
)

var stateNames = [...]string{"unmatched", "before", "handler", "after", "done", "not_found"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// transitions lists the legal moves. BEFORE and the handler may stop the
// chain early, so both can go straight to done.
var transitions = map[State][]State{
	StateUnmatched: {StateBefore, StateNotFound},
	StateBefore:    {StateHandler, StateDone},
	StateHandler:   {StateAfter, StateDone},
	StateAfter:     {StateDone},
}

// Plan is the result of matching one request: the BEFORE chain, exactly
// one handler and the AFTER chain. A Plan belongs to a single request.
type Plan struct {
	Method web.Method
	Path   string
	Query  string
	Params map[string]string

	Before  []*Entry
	Handler *Entry
	After   []*Entry

	state State
}

// State returns the current dispatch state.
func (p *Plan) State() State { return p.state }

// Advance moves the plan to the next state.
func (p *Plan) Advance(to State) error {
	for _, next := range transitions[p.state] {
		if next == to {
			p.state = to
			return nil
		}
	}
	return fmt.Errorf("route: illegal transition %s -> %s", p.state, to)
}
