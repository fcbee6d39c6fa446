package servo

import (
	"fmt"
	"sync"
)

// Servo is a hobby servo driven to an absolute angle in degrees.
type Servo interface {
	Write(angle int) error
}

// Sim records every angle written to it.
type Sim struct {
	mu     sync.Mutex
	angle  int
	writes []int
}

func NewSim() *Sim {
	return &Sim{}
}

func (s *Sim) Write(angle int) error {
	if angle < 0 || angle > 180 {
		return fmt.Errorf("servo angle %d out of range [0, 180]", angle)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.angle = angle
	s.writes = append(s.writes, angle)
	return nil
}

func (s *Sim) Angle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.angle
}

// Writes returns a copy of the angles written so far, oldest first.
func (s *Sim) Writes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.writes))
	copy(out, s.writes)
	return out
}

var _ Servo = (*Sim)(nil)
