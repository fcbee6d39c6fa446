package client_test

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/jt05610/gantry/client"
	"github.com/jt05610/gantry/events"
	"github.com/jt05610/gantry/firmware"
	"github.com/jt05610/gantry/gantry/gantrytest"
	"go.uber.org/zap/zaptest"
)

func TestClientAgainstFirmware(t *testing.T) {
	host, device := net.Pipe()
	rig := gantrytest.NewRig(t, gantrytest.Config())
	mem := &events.Memory{}
	fw := firmware.New(firmware.Config{
		Device:      "gantry-test",
		Ready:       client.DefaultReady,
		IdleTimeout: 30 * time.Second,
	}, rig.Controller, rig.Clock, mem, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- fw.Run(ctx, device)
	}()

	c := client.New(host, zaptest.NewLogger(t))
	reqCtx, reqCancel := context.WithTimeout(ctx, 5*time.Second)
	defer reqCancel()
	if err := c.WaitReady(reqCtx, client.DefaultReady); err != nil {
		t.Fatal(err)
	}
	steps := []struct {
		name   string
		call   func() (string, error)
		expect string
	}{
		{"hardHome", func() (string, error) { return c.HardHome(reqCtx) }, "Gantry Homed"},
		{"move", func() (string, error) { return c.Move(reqCtx, 100, 50, -20) }, "Move complete in 0s"},
		{"mix", func() (string, error) { return c.Mix(reqCtx, 2, 100) }, "Mix complete in 0s"},
		{"pinch", func() (string, error) { return c.Pinch(reqCtx) }, "Pipettes successfully pinched"},
		{"release", func() (string, error) { return c.Release(reqCtx) }, "Pipettes successfully released"},
		{"zQuickHome", func() (string, error) { return c.ZQuickHome(reqCtx) }, "Z Homed"},
		{"softHome", func() (string, error) { return c.SoftHome(reqCtx) }, "Gantry Homed"},
		{"zero", func() (string, error) { return c.Zero(reqCtx) }, "Gantry Zeroed"},
		{"state", func() (string, error) { return c.State(reqCtx) }, client.DefaultReady},
	}
	for _, s := range steps {
		got, err := s.call()
		if err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		if got != s.expect {
			t.Fatalf("%s: expected %q, got %q", s.name, s.expect, got)
		}
	}
	if _, err := c.Send(reqCtx, "foo(1,2)"); !errors.Is(err, client.ErrUnknownCommand) {
		t.Fatalf("expected %v, got %v", client.ErrUnknownCommand, err)
	}

	cancel()
	_ = host.Close()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected %v, got %v", context.Canceled, err)
	}
	if got := rig.Positions(); got != [3]int64{} {
		t.Fatalf("expected gantry zeroed, got %v", got)
	}
}

func TestWaitReadySkipsNoise(t *testing.T) {
	host, device := net.Pipe()
	defer host.Close()
	go func() {
		_, _ = io.WriteString(device, "\x00\x00boot noise\r\n\r\nGantry Kit Ready\r\n")
		_, _ = io.WriteString(device, "Error: relay welded\r\n")
	}()
	c := client.New(host, zaptest.NewLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.WaitReady(ctx, client.DefaultReady); err != nil {
		t.Fatal(err)
	}
	go func() {
		buf := make([]byte, 64)
		_, _ = device.Read(buf)
	}()
	if _, err := c.Send(ctx, "pinch()"); !errors.Is(err, client.ErrDevice) {
		t.Fatalf("expected %v, got %v", client.ErrDevice, err)
	}
}

func TestWaitReadyClosed(t *testing.T) {
	host, device := net.Pipe()
	c := client.New(host, zaptest.NewLogger(t))
	_ = device.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.WaitReady(ctx, client.DefaultReady); err == nil {
		t.Fatal("expected error when the device hangs up")
	}
}
