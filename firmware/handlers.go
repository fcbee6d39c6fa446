package firmware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jt05610/gantry/gantry"
	"github.com/jt05610/gantry/protocol"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	ResponseUnknown  = "Unknown command"
	ResponseHomed    = "Gantry Homed"
	ResponseZHomed   = "Z Homed"
	ResponseZeroed   = "Gantry Zeroed"
	ResponsePinched  = "Pipettes successfully pinched"
	ResponseReleased = "Pipettes successfully released"
	errorPrefix      = "Error: "
)

var ErrUnknownCommand = errors.New("unknown command")

// Handler executes one command and returns the response line.
type Handler func(ctx context.Context, cmd protocol.Command) (string, error)

// Handlers maps an action name to its handler.
type Handlers map[string]Handler

func (h Handlers) Handle(ctx context.Context, cmd protocol.Command) (string, error) {
	handler, ok := h[cmd.Action]
	if !ok {
		return ResponseUnknown, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Action)
	}
	return handler(ctx, cmd)
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

func (f *Firmware) commands() Handlers {
	g := f.gantry
	static := func(op func() error, response string) Handler {
		return func(context.Context, protocol.Command) (string, error) {
			if err := op(); err != nil {
				return "", err
			}
			return response, nil
		}
	}
	return Handlers{
		"move": func(_ context.Context, cmd protocol.Command) (string, error) {
			d, err := g.Move(r3.Vec{X: cmd.Float(0), Y: cmd.Float(1), Z: cmd.Float(2)})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Move complete in %ds", seconds(d)), nil
		},
		"softHome":   static(g.SoftHome, ResponseHomed),
		"hardHome":   static(g.HardHome, ResponseHomed),
		"zQuickHome": static(g.ZQuickHome, ResponseZHomed),
		"gantryZero": static(g.IdleRetreat, ResponseZeroed),
		"pinch":      static(g.Pinch, ResponsePinched),
		"release":    static(g.Release, ResponseReleased),
		"mix": func(_ context.Context, cmd protocol.Command) (string, error) {
			p := gantry.MixParams{Count: cmd.Int(0)}
			if g.MixerKind() == gantry.StepperMixer {
				p.Displacement = cmd.Float(1)
				p.Accel = cmd.Float(2)
			} else {
				p.Dwell = time.Duration(cmd.Int(1)) * time.Millisecond
			}
			d, err := g.Mix(p)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Mix complete in %ds", seconds(d)), nil
		},
		"returnState": func(context.Context, protocol.Command) (string, error) {
			return f.cfg.Ready, nil
		},
	}
}

// arity is the number of numeric arguments an action expects. Actions not
// listed take a single ignored argument.
func (f *Firmware) arity(action string) int {
	switch action {
	case "move":
		return 3
	case "mix":
		if f.gantry.MixerKind() == gantry.StepperMixer {
			return 3
		}
		return 2
	}
	return 0
}
