package power_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jt05610/gantry/clock"
	"github.com/jt05610/gantry/power"
	"go.uber.org/zap/zaptest"
)

func TestSequencerRequestPoll(t *testing.T) {
	relay := &power.SimRelay{}
	c := clock.NewFake(time.Unix(0, 0))
	s := power.NewSequencer(relay, c, 200*time.Millisecond, zaptest.NewLogger(t))
	if err := s.Request(true, c.Now()); err != nil {
		t.Fatal(err)
	}
	if s.State() != power.Energizing {
		t.Fatalf("expected %v, got %v", power.Energizing, s.State())
	}
	if !relay.On() {
		t.Fatal("expected relay switched on immediately")
	}
	c.Advance(199 * time.Millisecond)
	if got := s.Poll(c.Now()); got != power.Energizing {
		t.Fatalf("expected %v before settle, got %v", power.Energizing, got)
	}
	c.Advance(time.Millisecond)
	if got := s.Poll(c.Now()); got != power.On {
		t.Fatalf("expected %v, got %v", power.On, got)
	}
}

func TestSequencerBlocking(t *testing.T) {
	relay := &power.SimRelay{}
	start := time.Unix(0, 0)
	c := clock.NewFake(start)
	s := power.NewSequencer(relay, c, 200*time.Millisecond, nil)
	if err := s.PowerOn(); err != nil {
		t.Fatal(err)
	}
	if s.State() != power.On {
		t.Fatalf("expected %v, got %v", power.On, s.State())
	}
	if d := c.Now().Sub(start); d != 200*time.Millisecond {
		t.Fatalf("expected 200ms settle, got %v", d)
	}
	// already on: no relay switch and no settle delay
	if err := s.PowerOn(); err != nil {
		t.Fatal(err)
	}
	if d := c.Now().Sub(start); d != 200*time.Millisecond {
		t.Fatalf("expected no extra delay, got %v", d)
	}
	if err := s.PowerOff(); err != nil {
		t.Fatal(err)
	}
	if s.State() != power.Off || relay.On() {
		t.Fatalf("expected off, got %v (relay on: %v)", s.State(), relay.On())
	}
	if relay.Switches() != 2 {
		t.Fatalf("expected 2 relay switches, got %d", relay.Switches())
	}
}

func TestSequencerRelayFailure(t *testing.T) {
	fail := errors.New("relay stuck")
	relay := &power.SimRelay{Fail: fail}
	s := power.NewSequencer(relay, clock.NewFake(time.Unix(0, 0)), 0, nil)
	err := s.PowerOn()
	if !errors.Is(err, fail) {
		t.Fatalf("expected %v, got %v", fail, err)
	}
	if s.State() != power.Off {
		t.Fatalf("expected state unchanged, got %v", s.State())
	}
}
