package kinematics_test

import (
	"math"
	"testing"

	"github.com/jt05610/gantry/kinematics"
)

var drives = []struct {
	name  string
	drive kinematics.Drive
}{
	{
		name: "belt",
		drive: kinematics.Drive{
			Kind:         kinematics.Belt,
			Direction:    kinematics.Forward,
			StepsPerRev:  200,
			Microsteps:   4,
			PulleyRadius: 6.34,
		},
	},
	{
		name: "rod reversed",
		drive: kinematics.Drive{
			Kind:        kinematics.ThreadedRod,
			Direction:   kinematics.Reverse,
			StepsPerRev: 200,
			Microsteps:  4,
			ThreadPitch: 2,
		},
	},
	{
		name: "rotary",
		drive: kinematics.Drive{
			Kind:        kinematics.Rotary,
			Direction:   kinematics.Forward,
			StepsPerRev: 200,
			Microsteps:  4,
		},
	},
}

func TestToSteps(t *testing.T) {
	cases := []struct {
		name   string
		drive  kinematics.Drive
		units  float64
		expect int64
	}{
		// 800 * 100 / (2π * 6.34) = 2008.2...
		{"belt 100mm", drives[0].drive, 100, 2008},
		{"belt -100mm", drives[0].drive, -100, -2008},
		// -800 * 20 / 2
		{"rod 20mm", drives[1].drive, 20, -8000},
		{"rod -20mm", drives[1].drive, -20, 8000},
		{"rotary quarter turn", drives[2].drive, 0.25, 200},
		{"rotary pinch", drives[2].drive, 0.08, 64},
		{"zero", drives[0].drive, 0, 0},
	}
	for _, tc := range cases {
		got := tc.drive.ToSteps(tc.units)
		if got != tc.expect {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.expect, got)
		}
	}
}

func TestToStepsSignAndMonotonic(t *testing.T) {
	for _, d := range drives {
		prev := d.drive.ToSteps(-500)
		for u := -500.0; u <= 500; u += 0.37 {
			s := d.drive.ToSteps(u)
			want := float64(d.drive.Direction) * u
			if s != 0 && (s > 0) != (want > 0) {
				t.Fatalf("%s: sign of %d does not match direction*units %v", d.name, s, want)
			}
			if d.drive.Direction == kinematics.Forward && s < prev {
				t.Fatalf("%s: not monotonic at %v: %d < %d", d.name, u, s, prev)
			}
			if d.drive.Direction == kinematics.Reverse && s > prev {
				t.Fatalf("%s: not monotonic at %v: %d > %d", d.name, u, s, prev)
			}
			prev = s
		}
	}
}

func TestToUnitsQuantization(t *testing.T) {
	d := drives[0].drive
	perStep := math.Abs(1 / d.StepsPerUnit())
	for _, u := range []float64{0.1, 12.345, 99.99, -42.42} {
		back := d.ToUnits(d.ToSteps(u))
		if math.Abs(back-u) >= perStep {
			t.Fatalf("expected round trip of %v within one step (%v), got %v", u, perStep, back)
		}
		if math.Abs(back) > math.Abs(u) {
			t.Fatalf("expected truncation toward zero for %v, got %v", u, back)
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"belt", "threaded-rod", "rod", "rotary"} {
		if _, err := kinematics.ParseKind(s); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := kinematics.ParseKind("screw"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestValidate(t *testing.T) {
	for _, d := range drives {
		if err := d.drive.Validate(); err != nil {
			t.Fatalf("%s: %v", d.name, err)
		}
	}
	bad := drives[0].drive
	bad.PulleyRadius = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for zero pulley radius")
	}
	bad = drives[1].drive
	bad.Direction = 2
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for direction 2")
	}
}
