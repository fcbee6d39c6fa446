// Package stepper describes the pulse-generating stepper driver the axis
// controller sits on, and provides a simulated implementation.
package stepper

// Driver is an acceleration-limited stepper driver. Positions are in
// microsteps. Run advances the motor by at most one step toward its target
// and reports whether distance remains.
type Driver interface {
	MoveTo(absolute int64)
	Move(relative int64)
	Run() bool
	RunToPosition()
	DistanceToGo() int64
	CurrentPosition() int64
	TargetPosition() int64
	SetCurrentPosition(position int64)
	SetMaxSpeed(stepsPerSecond float64)
	SetAcceleration(stepsPerSecond2 float64)
	MaxSpeed() float64
	Acceleration() float64
}
