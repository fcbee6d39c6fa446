// Package client drives a gantry over its serial text protocol from the host
// side. A Client sends one command at a time and waits for its response line.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jt05610/gantry/comm/serial"
	"github.com/jt05610/gantry/protocol"
	"go.uber.org/zap"
)

const DefaultReady = "Gantry Kit Ready"

var (
	ErrUnknownCommand = errors.New("gantry did not recognise command")
	ErrDevice         = errors.New("gantry reported an error")
	ErrClosed         = errors.New("connection closed")
)

type line struct {
	text string
	err  error
}

type Client struct {
	rw     io.ReadWriter
	lines  chan line
	mu     sync.Mutex
	logger *zap.Logger
}

// New starts reading response lines from rw.
func New(rw io.ReadWriter, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		rw:     rw,
		lines:  make(chan line, 16),
		logger: logger,
	}
	go c.read()
	return c
}

// Open connects to a gantry on a serial port and waits for its ready line.
func Open(ctx context.Context, port string, baud int, ready string, logger *zap.Logger) (*Client, error) {
	p, err := serial.OpenPort(port, baud)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", port, err)
	}
	c := New(p, logger)
	if err := c.WaitReady(ctx, ready); err != nil {
		_ = p.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) read() {
	defer close(c.lines)
	scanner := bufio.NewScanner(c.rw)
	for scanner.Scan() {
		text := strings.TrimSpace(strings.ReplaceAll(scanner.Text(), "\x00", ""))
		if text == "" {
			continue
		}
		c.lines <- line{text: text}
	}
	if err := scanner.Err(); err != nil {
		c.lines <- line{err: err}
	}
}

func (c *Client) next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-c.lines:
		if !ok {
			return "", ErrClosed
		}
		return l.text, l.err
	}
}

// WaitReady discards lines until the ready line arrives.
func (c *Client) WaitReady(ctx context.Context, ready string) error {
	for {
		text, err := c.next(ctx)
		if err != nil {
			return fmt.Errorf("waiting for %q: %w", ready, err)
		}
		if text == ready {
			c.logger.Info("serial connection to gantry established")
			return nil
		}
		c.logger.Debug("discarding line", zap.String("line", text))
	}
}

// Send writes a frame and returns the response line.
func (c *Client) Send(ctx context.Context, frame string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.rw, frame); err != nil {
		return "", err
	}
	resp, err := c.next(ctx)
	if err != nil {
		return "", err
	}
	switch {
	case resp == "Unknown command":
		return resp, fmt.Errorf("%w: %s", ErrUnknownCommand, frame)
	case strings.HasPrefix(resp, "Error: "):
		return resp, fmt.Errorf("%w: %s", ErrDevice, strings.TrimPrefix(resp, "Error: "))
	}
	c.logger.Info("response from gantry", zap.String("frame", frame), zap.String("response", resp))
	return resp, nil
}

func (c *Client) Move(ctx context.Context, x, y, z float64) (string, error) {
	return c.Send(ctx, protocol.FormatFloats("move", x, y, z))
}

func (c *Client) HardHome(ctx context.Context) (string, error) {
	return c.Send(ctx, "hardHome()")
}

func (c *Client) SoftHome(ctx context.Context) (string, error) {
	return c.Send(ctx, "softHome()")
}

func (c *Client) ZQuickHome(ctx context.Context) (string, error) {
	return c.Send(ctx, "zQuickHome()")
}

func (c *Client) Zero(ctx context.Context) (string, error) {
	return c.Send(ctx, "gantryZero()")
}

// Mix takes count and delay in ms for a servo mixer, or count, displacement
// and acceleration for a stepper mixer.
func (c *Client) Mix(ctx context.Context, count int, args ...float64) (string, error) {
	return c.Send(ctx, protocol.FormatFloats("mix", append([]float64{float64(count)}, args...)...))
}

func (c *Client) Pinch(ctx context.Context) (string, error) {
	return c.Send(ctx, "pinch()")
}

func (c *Client) Release(ctx context.Context) (string, error) {
	return c.Send(ctx, "release()")
}

func (c *Client) State(ctx context.Context) (string, error) {
	return c.Send(ctx, "returnState()")
}

func (c *Client) Close() error {
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
