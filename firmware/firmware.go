// Package firmware runs the gantry control loop: it reads command frames,
// dispatches them to the controller one at a time and enforces the idle
// timeout between commands.
package firmware

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jt05610/gantry/clock"
	"github.com/jt05610/gantry/events"
	"github.com/jt05610/gantry/gantry"
	"github.com/jt05610/gantry/protocol"
	"github.com/jt05610/gantry/watchdog"
	"go.uber.org/zap"
)

type Config struct {
	Device      string
	Ready       string
	IdleTimeout time.Duration
	// Tick is how often the loop checks the idle timeout.
	Tick time.Duration
}

const DefaultTick = 100 * time.Millisecond

type Firmware struct {
	cfg      Config
	gantry   *gantry.Controller
	watchdog *watchdog.Watchdog
	clock    clock.Clock
	events   events.Publisher
	handlers Handlers
	logger   *zap.Logger
}

func New(cfg Config, g *gantry.Controller, c clock.Clock, pub events.Publisher, logger *zap.Logger) *Firmware {
	if c == nil {
		c = clock.Real{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pub == nil {
		pub = events.NewLog(logger)
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	f := &Firmware{
		cfg:      cfg,
		gantry:   g,
		watchdog: watchdog.New(cfg.IdleTimeout, c.Now()),
		clock:    c,
		events:   pub,
		logger:   logger,
	}
	f.handlers = f.commands()
	return f
}

type commandData struct {
	Command  string        `json:"command"`
	Response string        `json:"response,omitempty"`
	Error    string        `json:"error,omitempty"`
	Status   gantry.Status `json:"status"`
}

func (f *Firmware) publish(ctx context.Context, name string, data interface{}) {
	e := events.New(f.cfg.Device, name, f.clock.Now(), data)
	if err := f.events.Publish(ctx, e); err != nil {
		f.logger.Warn("failed to publish event", zap.String("event", name), zap.Error(err))
	}
}

// Boot tensions the rack rope, powers the drivers down and returns the ready
// line.
func (f *Firmware) Boot(ctx context.Context) (string, error) {
	if err := f.gantry.TensionRope(); err != nil {
		return "", fmt.Errorf("tension rope: %w", err)
	}
	if err := f.gantry.PowerOff(); err != nil {
		return "", err
	}
	f.watchdog.Touch(f.clock.Now())
	f.logger.Info("boot complete", zap.String("ready", f.cfg.Ready))
	f.publish(ctx, events.Ready, f.gantry.Status())
	return f.cfg.Ready, nil
}

// HandleFrame parses and executes one frame and returns the response line.
func (f *Firmware) HandleFrame(ctx context.Context, frame string) string {
	cmd := protocol.Parse(frame)
	f.watchdog.Touch(f.clock.Now())
	if len(cmd.Malformed) > 0 || cmd.Missing(f.arity(cmd.Action)) > 0 {
		f.logger.Warn("arguments defaulted to zero",
			zap.String("frame", cmd.Raw),
			zap.Ints("malformed", cmd.Malformed),
			zap.Int("missing", cmd.Missing(f.arity(cmd.Action))),
		)
	}
	f.logger.Debug("command accepted", zap.String("action", cmd.Action))
	f.publish(ctx, events.CommandAccepted, commandData{Command: cmd.Raw, Status: f.gantry.Status()})

	resp, err := f.handlers.Handle(ctx, cmd)
	f.watchdog.Touch(f.clock.Now())
	switch {
	case errors.Is(err, ErrUnknownCommand):
		f.logger.Info("unknown command", zap.String("action", cmd.Action))
		f.publish(ctx, events.UnknownCommand, commandData{Command: cmd.Raw, Response: resp, Status: f.gantry.Status()})
		return resp
	case err != nil:
		f.logger.Error("command failed", zap.String("action", cmd.Action), zap.Error(err))
		resp = errorPrefix + err.Error()
		f.publish(ctx, events.CommandFailed, commandData{Command: cmd.Raw, Error: err.Error(), Status: f.gantry.Status()})
		return resp
	}
	f.publish(ctx, events.CommandCompleted, commandData{Command: cmd.Raw, Response: resp, Status: f.gantry.Status()})
	return resp
}

// Tick enforces the idle timeout. When it has expired an unhomed gantry is
// parked, driver power is cut and the timer restarts.
func (f *Firmware) Tick(ctx context.Context) error {
	if !f.watchdog.Expired(f.clock.Now()) {
		return nil
	}
	f.logger.Info("idle timeout",
		zap.Duration("idle", f.watchdog.Idle(f.clock.Now())),
		zap.Bool("homed", f.gantry.Homed()),
	)
	var err error
	if !f.gantry.Homed() {
		err = f.gantry.IdleRetreat()
	}
	if perr := f.gantry.PowerOff(); err == nil {
		err = perr
	}
	f.watchdog.Touch(f.clock.Now())
	f.publish(ctx, events.IdleTimeout, f.gantry.Status())
	return err
}

func writeLine(w io.Writer, line string) error {
	_, err := io.WriteString(w, line+"\r\n")
	return err
}

// Run boots the firmware, writes the ready line and serves frames from rw
// until ctx is done or the reader is exhausted. Frames are handled one at a
// time; a running command is never interrupted.
//
// Run returns as soon as ctx is done, but the frame reader stays blocked in
// Read until rw delivers data or fails. Callers that keep the process alive
// after Run returns should close rw.
func (f *Firmware) Run(ctx context.Context, rw io.ReadWriter) error {
	ready, err := f.Boot(ctx)
	if err != nil {
		return err
	}
	if err := writeLine(rw, ready); err != nil {
		return err
	}
	frames := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(frames)
		scanner := bufio.NewScanner(rw)
		scanner.Split(protocol.ScanFrames)
		for scanner.Scan() {
			select {
			case frames <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()
	ticker := time.NewTicker(f.cfg.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return ctx.Err()
				}
			}
			if err := writeLine(rw, f.HandleFrame(ctx, frame)); err != nil {
				return err
			}
		case <-ticker.C:
			if err := f.Tick(ctx); err != nil {
				f.logger.Error("idle handling failed", zap.Error(err))
			}
		}
	}
}
