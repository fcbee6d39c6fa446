// Package power sequences the relay that enables the stepper drivers.
package power

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jt05610/gantry/clock"
	"go.uber.org/zap"
)

// Relay switches driver power.
type Relay interface {
	Set(on bool) error
}

type State int

const (
	Off State = iota
	Energizing
	On
	DeEnergizing
)

func (s State) String() string {
	switch s {
	case Off:
		return "off"
	case Energizing:
		return "energizing"
	case On:
		return "on"
	case DeEnergizing:
		return "de-energizing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// DefaultSettle is how long the drivers need after the relay switches.
const DefaultSettle = 200 * time.Millisecond

var ErrTransitioning = errors.New("power transition in progress")

// Sequencer drives the relay through timed Off -> Energizing -> On and
// On -> DeEnergizing -> Off transitions.
type Sequencer struct {
	relay  Relay
	clock  clock.Clock
	settle time.Duration
	logger *zap.Logger

	state State
	since time.Time
}

func NewSequencer(relay Relay, c clock.Clock, settle time.Duration, logger *zap.Logger) *Sequencer {
	if c == nil {
		c = clock.Real{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequencer{
		relay:  relay,
		clock:  c,
		settle: settle,
		logger: logger,
	}
}

func (s *Sequencer) State() State {
	return s.state
}

// Request starts a transition toward on. Asking for the state the sequencer
// is already in, or already moving toward, does nothing.
func (s *Sequencer) Request(on bool, now time.Time) error {
	switch {
	case on && (s.state == On || s.state == Energizing):
		return nil
	case !on && (s.state == Off || s.state == DeEnergizing):
		return nil
	}
	if err := s.relay.Set(on); err != nil {
		return fmt.Errorf("set relay %v: %w", on, err)
	}
	if on {
		s.state = Energizing
	} else {
		s.state = DeEnergizing
	}
	s.since = now
	s.logger.Debug("power transition", zap.Stringer("state", s.state))
	return nil
}

// Poll completes a pending transition once the settle time has elapsed and
// returns the resulting state.
func (s *Sequencer) Poll(now time.Time) State {
	if s.state != Energizing && s.state != DeEnergizing {
		return s.state
	}
	if now.Sub(s.since) < s.settle {
		return s.state
	}
	if s.state == Energizing {
		s.state = On
	} else {
		s.state = Off
	}
	s.logger.Debug("power settled", zap.Stringer("state", s.state))
	return s.state
}

func (s *Sequencer) PowerOn() error {
	return s.blocking(true)
}

func (s *Sequencer) PowerOff() error {
	return s.blocking(false)
}

func (s *Sequencer) blocking(on bool) error {
	want := Off
	if on {
		want = On
	}
	if s.state == want {
		return nil
	}
	if err := s.Request(on, s.clock.Now()); err != nil {
		return err
	}
	if rem := s.settle - s.clock.Now().Sub(s.since); rem > 0 {
		s.clock.Sleep(rem)
	}
	if got := s.Poll(s.clock.Now()); got != want {
		return fmt.Errorf("%w: still %s", ErrTransitioning, got)
	}
	return nil
}

// SimRelay is an in-memory relay. Setting Fail makes every switch fail.
type SimRelay struct {
	mu       sync.Mutex
	on       bool
	switches int
	Fail     error
}

func (r *SimRelay) Set(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	if r.on != on {
		r.switches++
	}
	r.on = on
	return nil
}

func (r *SimRelay) On() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on
}

// Switches counts relay state changes.
func (r *SimRelay) Switches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.switches
}
