// Package profile loads hardware profiles: the geometry, limits, speeds and
// homing parameters that distinguish one gantry build from another.
package profile

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jt05610/gantry/axis"
	"github.com/jt05610/gantry/firmware"
	"github.com/jt05610/gantry/gantry"
	"github.com/jt05610/gantry/kinematics"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

//go:embed profiles/*.yaml
var builtin embed.FS

const Default = "gantry-kit"

var ErrNotFound = errors.New("profile not found")

type Home struct {
	Toward     string `yaml:"toward"`
	Overtravel Expr   `yaml:"overtravel"`
	Offset     Expr   `yaml:"offset"`
}

type Axis struct {
	Kind         string `yaml:"kind"`
	Direction    int    `yaml:"direction"`
	StepsPerRev  Expr   `yaml:"steps_per_rev"`
	Microsteps   Expr   `yaml:"microsteps"`
	PulleyRadius Expr   `yaml:"pulley_radius"`
	ThreadPitch  Expr   `yaml:"thread_pitch"`
	Min          Expr   `yaml:"min"`
	Max          Expr   `yaml:"max"`
	Speed        Expr   `yaml:"speed"`
	Accel        Expr   `yaml:"accel"`
	HomingSpeed  Expr   `yaml:"homing_speed"`
	HomingAccel  Expr   `yaml:"homing_accel"`
	Home         Home   `yaml:"home"`
}

type Vec struct {
	X Expr `yaml:"x"`
	Y Expr `yaml:"y"`
	Z Expr `yaml:"z"`
}

type Rope struct {
	Tension Expr `yaml:"tension"`
	Pinch   Expr `yaml:"pinch"`
}

type Mixer struct {
	Kind  string             `yaml:"kind"`
	Servo gantry.ServoConfig `yaml:"servo"`
	Aux   *Axis              `yaml:"aux"`
}

type Profile struct {
	Name          string             `yaml:"name"`
	Ready         string             `yaml:"ready"`
	Baud          int                `yaml:"baud"`
	IdleTimeout   string             `yaml:"idle_timeout"`
	Settle        string             `yaml:"settle"`
	Vars          map[string]float64 `yaml:"vars"`
	Drift         Expr               `yaml:"drift"`
	CommandOffset Vec                `yaml:"command_offset"`
	Axes          struct {
		X Axis `yaml:"x"`
		Y Axis `yaml:"y"`
		Z Axis `yaml:"z"`
	} `yaml:"axes"`
	Rack  Axis  `yaml:"rack"`
	Rope  Rope  `yaml:"rope"`
	Mixer Mixer `yaml:"mixer"`
}

// Load decodes a profile. Unknown keys are rejected.
func Load(r io.Reader) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

// Names lists the builtin profiles.
func Names() []string {
	entries, err := builtin.ReadDir("profiles")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

func Builtin(name string) (*Profile, error) {
	b, err := builtin.ReadFile(path.Join("profiles", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return Load(bytes.NewReader(b))
}

// Open loads a builtin profile by name, or a profile file by path.
func Open(nameOrPath string) (*Profile, error) {
	if nameOrPath == "" {
		nameOrPath = Default
	}
	for _, n := range Names() {
		if n == nameOrPath {
			return Builtin(n)
		}
	}
	f, err := os.Open(nameOrPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, nameOrPath)
		}
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return Load(f)
}

func (p *Profile) vars() map[string]interface{} {
	vars := make(map[string]interface{}, len(p.Vars))
	for k, v := range p.Vars {
		vars[k] = v
	}
	return vars
}

func (ev *evaluator) axis(name string, a Axis) axis.Config {
	kind, err := kinematics.ParseKind(a.Kind)
	if err != nil && ev.err == nil {
		ev.err = fmt.Errorf("%s: %w", name, err)
	}
	toward, err := axis.ParseStop(a.Home.Toward)
	if err != nil && ev.err == nil {
		ev.err = fmt.Errorf("%s: %w", name, err)
	}
	field := func(f string) string { return name + "." + f }
	return axis.Config{
		Name: name,
		Drive: kinematics.Drive{
			Kind:         kind,
			Direction:    kinematics.Direction(a.Direction),
			StepsPerRev:  ev.eval(field("steps_per_rev"), a.StepsPerRev),
			Microsteps:   ev.eval(field("microsteps"), a.Microsteps),
			PulleyRadius: ev.eval(field("pulley_radius"), a.PulleyRadius),
			ThreadPitch:  ev.eval(field("thread_pitch"), a.ThreadPitch),
		},
		Min: ev.eval(field("min"), a.Min),
		Max: ev.eval(field("max"), a.Max),
		Normal: axis.Profile{
			MaxSpeed: ev.eval(field("speed"), a.Speed),
			Accel:    ev.eval(field("accel"), a.Accel),
		},
		Homing: axis.Profile{
			MaxSpeed: ev.eval(field("homing_speed"), a.HomingSpeed),
			Accel:    ev.eval(field("homing_accel"), a.HomingAccel),
		},
		Home: axis.Homing{
			Toward:     toward,
			Overtravel: ev.eval(field("home.overtravel"), a.Home.Overtravel),
			Offset:     ev.eval(field("home.offset"), a.Home.Offset),
		},
	}
}

func parseDuration(field, s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// Gantry resolves every expression and returns a validated controller
// configuration.
func (p *Profile) Gantry() (gantry.Config, error) {
	ev := &evaluator{vars: p.vars()}
	cfg := gantry.Config{
		X:    ev.axis("x", p.Axes.X),
		Y:    ev.axis("y", p.Axes.Y),
		Z:    ev.axis("z", p.Axes.Z),
		Rack: ev.axis("rack", p.Rack),
		Mixer: gantry.MixerConfig{
			Kind:  gantry.MixerKind(p.Mixer.Kind),
			Servo: p.Mixer.Servo,
		},
		Rope: gantry.RopeConfig{
			Tension: ev.eval("rope.tension", p.Rope.Tension),
			Pinch:   ev.eval("rope.pinch", p.Rope.Pinch),
		},
		Drift: ev.eval("drift", p.Drift),
		CommandOffset: r3.Vec{
			X: ev.eval("command_offset.x", p.CommandOffset.X),
			Y: ev.eval("command_offset.y", p.CommandOffset.Y),
			Z: ev.eval("command_offset.z", p.CommandOffset.Z),
		},
	}
	if p.Mixer.Aux != nil {
		cfg.Mixer.Aux = ev.axis("aux", *p.Mixer.Aux)
	}
	if ev.err != nil {
		return gantry.Config{}, fmt.Errorf("profile %s: %w", p.Name, ev.err)
	}
	settle, err := parseDuration("settle", p.Settle, 0)
	if err != nil {
		return gantry.Config{}, err
	}
	cfg.Settle = settle
	if err := cfg.Validate(); err != nil {
		return gantry.Config{}, fmt.Errorf("profile %s: %w", p.Name, err)
	}
	return cfg, nil
}

// Firmware returns the control loop configuration for a device.
func (p *Profile) Firmware(device string) (firmware.Config, error) {
	idle, err := parseDuration("idle_timeout", p.IdleTimeout, 0)
	if err != nil {
		return firmware.Config{}, err
	}
	return firmware.Config{
		Device:      device,
		Ready:       p.Ready,
		IdleTimeout: idle,
		Tick:        firmware.DefaultTick,
	}, nil
}

// Resolved is a profile with every expression evaluated.
type Resolved struct {
	Name        string        `yaml:"name"`
	Ready       string        `yaml:"ready"`
	Baud        int           `yaml:"baud"`
	IdleTimeout string        `yaml:"idle_timeout"`
	Gantry      gantry.Config `yaml:"gantry"`
}

func (p *Profile) Resolve() (*Resolved, error) {
	cfg, err := p.Gantry()
	if err != nil {
		return nil, err
	}
	fw, err := p.Firmware("")
	if err != nil {
		return nil, err
	}
	return &Resolved{
		Name:        p.Name,
		Ready:       fw.Ready,
		Baud:        p.Baud,
		IdleTimeout: fw.IdleTimeout.String(),
		Gantry:      cfg,
	}, nil
}
