package stepper

import "sync"

// Stops bounds the physical travel of a simulated motor. The step counter
// keeps counting when the carriage is pressed against a stop, which is what
// homing against a hard stop relies on.
type Stops struct {
	Min int64
	Max int64
}

// Sim is an in-memory Driver. Every Run call emits exactly one step.
type Sim struct {
	mu       sync.Mutex
	position int64
	target   int64
	physical int64
	stops    *Stops
	speed    float64
	accel    float64
	steps    uint64
}

type SimOption func(*Sim)

// WithStops limits the physical carriage to [min, max] steps measured from
// where it started.
func WithStops(min, max int64) SimOption {
	return func(s *Sim) {
		s.stops = &Stops{Min: min, Max: max}
	}
}

// WithPhysical places the carriage at p before any motion.
func WithPhysical(p int64) SimOption {
	return func(s *Sim) {
		s.physical = p
	}
}

func NewSim(opts ...SimOption) *Sim {
	s := &Sim{speed: 1, accel: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sim) MoveTo(absolute int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = absolute
}

func (s *Sim) Move(relative int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = s.position + relative
}

func (s *Sim) Run() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step()
}

func (s *Sim) step() bool {
	d := s.target - s.position
	if d == 0 {
		return false
	}
	inc := int64(1)
	if d < 0 {
		inc = -1
	}
	s.position += inc
	s.steps++
	next := s.physical + inc
	if s.stops == nil || (next >= s.stops.Min && next <= s.stops.Max) {
		s.physical = next
	}
	return s.position != s.target
}

func (s *Sim) RunToPosition() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.step() {
	}
}

func (s *Sim) DistanceToGo() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target - s.position
}

func (s *Sim) CurrentPosition() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *Sim) TargetPosition() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// SetCurrentPosition redefines the logical position and cancels any pending
// motion.
func (s *Sim) SetCurrentPosition(position int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = position
	s.target = position
}

func (s *Sim) SetMaxSpeed(stepsPerSecond float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = stepsPerSecond
}

func (s *Sim) SetAcceleration(stepsPerSecond2 float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accel = stepsPerSecond2
}

func (s *Sim) MaxSpeed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

func (s *Sim) Acceleration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accel
}

// Physical is where the carriage actually is, in steps from its start.
func (s *Sim) Physical() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.physical
}

// StepCount is the number of steps emitted since creation.
func (s *Sim) StepCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps
}

var _ Driver = (*Sim)(nil)
