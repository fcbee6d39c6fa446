package kinematics

import (
	"fmt"
	"math"
)

// Kind selects how one motor revolution maps onto physical travel.
type Kind int

const (
	// Belt axes travel one pulley circumference per revolution.
	Belt Kind = iota
	// ThreadedRod axes travel one thread pitch per revolution.
	ThreadedRod
	// Rotary axes are measured in revolutions directly.
	Rotary
)

var kinds = []string{
	Belt:        "belt",
	ThreadedRod: "threaded-rod",
	Rotary:      "rotary",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kinds) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kinds[k]
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func ParseKind(s string) (Kind, error) {
	for i, name := range kinds {
		if name == s {
			return Kind(i), nil
		}
	}
	switch s {
	case "rod", "threaded_rod":
		return ThreadedRod, nil
	case "pulley":
		return Belt, nil
	}
	return 0, fmt.Errorf("unknown axis kind %q", s)
}

// Direction is +1 or -1 and flips the sign of every conversion.
type Direction int

const (
	Forward Direction = 1
	Reverse Direction = -1
)

// Drive holds everything needed to convert physical units into motor steps for
// one axis.
type Drive struct {
	Kind         Kind
	Direction    Direction
	StepsPerRev  float64
	Microsteps   float64
	PulleyRadius float64
	ThreadPitch  float64
}

// UnitsPerRevolution returns the physical travel of one full motor revolution.
func (d Drive) UnitsPerRevolution() float64 {
	switch d.Kind {
	case Belt:
		return 2 * math.Pi * d.PulleyRadius
	case ThreadedRod:
		return d.ThreadPitch
	default:
		return 1
	}
}

// StepsPerUnit returns microsteps per physical unit, direction included.
func (d Drive) StepsPerUnit() float64 {
	return float64(d.Direction) * d.Microsteps * d.StepsPerRev / d.UnitsPerRevolution()
}

// ToSteps converts physical units to motor steps, truncating toward zero.
// The truncation is a quantization: ToUnits(ToSteps(u)) is generally not u.
func (d Drive) ToSteps(units float64) int64 {
	return int64(math.Trunc(d.StepsPerUnit() * units))
}

// ToUnits is the approximate inverse of ToSteps.
func (d Drive) ToUnits(steps int64) float64 {
	return float64(steps) / d.StepsPerUnit()
}

func (d Drive) Validate() error {
	if d.Direction != Forward && d.Direction != Reverse {
		return fmt.Errorf("direction must be 1 or -1, got %d", d.Direction)
	}
	if d.StepsPerRev <= 0 || d.Microsteps <= 0 {
		return fmt.Errorf("steps per revolution and microsteps must be positive")
	}
	switch d.Kind {
	case Belt:
		if d.PulleyRadius <= 0 {
			return fmt.Errorf("belt axis needs a positive pulley radius")
		}
	case ThreadedRod:
		if d.ThreadPitch <= 0 {
			return fmt.Errorf("threaded-rod axis needs a positive thread pitch")
		}
	case Rotary:
	default:
		return fmt.Errorf("unknown axis kind %d", d.Kind)
	}
	return nil
}
