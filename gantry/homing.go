package gantry

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// HomingState tracks whether logical positions can be trusted.
type HomingState int

const (
	Unhomed HomingState = iota
	HardHoming
	SoftHoming
	ZHoming
	Retreating
	Homed
)

var homingStates = []string{
	Unhomed:    "Unhomed",
	HardHoming: "HardHoming",
	SoftHoming: "SoftHoming",
	ZHoming:    "ZHoming",
	Retreating: "Retreating",
	Homed:      "Homed",
}

func (s HomingState) String() string {
	if int(s) < 0 || int(s) >= len(homingStates) {
		return fmt.Sprintf("HomingState(%d)", int(s))
	}
	return homingStates[s]
}

// HomingStates lists every state in declaration order.
func HomingStates() []HomingState {
	ret := make([]HomingState, len(homingStates))
	for i := range ret {
		ret[i] = HomingState(i)
	}
	return ret
}

const (
	EventHardHome   = "hardHome"
	EventSoftHome   = "softHome"
	EventZQuickHome = "zQuickHome"
	EventRetreat    = "gantryZero"
	EventMove       = "move"
	EventDone       = "done"
)

// Transition moves the machine from From to To on Event when Guard, an
// expression over `homed`, holds. An empty guard always holds.
type Transition struct {
	From  HomingState
	Event string
	Guard string
	To    HomingState
}

var Transitions = []Transition{
	{From: Unhomed, Event: EventMove, To: Unhomed},
	{From: Homed, Event: EventMove, To: Unhomed},

	{From: Unhomed, Event: EventHardHome, To: HardHoming},
	{From: Homed, Event: EventHardHome, To: HardHoming},
	{From: HardHoming, Event: EventDone, To: Homed},

	{From: Unhomed, Event: EventSoftHome, To: SoftHoming},
	{From: Homed, Event: EventSoftHome, To: SoftHoming},
	{From: SoftHoming, Event: EventDone, To: Homed},

	{From: Unhomed, Event: EventZQuickHome, To: ZHoming},
	{From: Homed, Event: EventZQuickHome, To: ZHoming},
	{From: ZHoming, Event: EventDone, Guard: "homed", To: Homed},
	{From: ZHoming, Event: EventDone, Guard: "!homed", To: Unhomed},

	{From: Unhomed, Event: EventRetreat, To: Retreating},
	{From: Homed, Event: EventRetreat, To: Retreating},
	{From: Retreating, Event: EventDone, To: Homed},
}

var ErrInvalidTransition = errors.New("invalid homing transition")

type machine struct {
	state       HomingState
	transitions []Transition
	guards      map[string]*vm.Program
}

func newMachine(transitions []Transition) (*machine, error) {
	m := &machine{
		state:       Unhomed,
		transitions: transitions,
		guards:      make(map[string]*vm.Program),
	}
	env := map[string]interface{}{"homed": false}
	for _, t := range transitions {
		if t.Guard == "" {
			continue
		}
		if _, ok := m.guards[t.Guard]; ok {
			continue
		}
		program, err := expr.Compile(t.Guard, expr.Env(env), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile guard %q: %w", t.Guard, err)
		}
		m.guards[t.Guard] = program
	}
	return m, nil
}

func (m *machine) fire(event string, homed bool) error {
	env := map[string]interface{}{"homed": homed}
	for _, t := range m.transitions {
		if t.From != m.state || t.Event != event {
			continue
		}
		if t.Guard != "" {
			ok, err := expr.Run(m.guards[t.Guard], env)
			if err != nil {
				return fmt.Errorf("evaluate guard %q: %w", t.Guard, err)
			}
			if !ok.(bool) {
				continue
			}
		}
		m.state = t.To
		return nil
	}
	return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, m.state, event)
}
