/*
Copyright © 2024 Jonathan Taylor <jonrtaylor12@gmail.com>
*/

package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"

	"github.com/jt05610/gantry/amqp"
	"github.com/jt05610/gantry/clock"
	"github.com/jt05610/gantry/comm/serial"
	"github.com/jt05610/gantry/events"
	"github.com/jt05610/gantry/firmware"
	"github.com/jt05610/gantry/gantry"
	"github.com/jt05610/gantry/power"
	"github.com/jt05610/gantry/profile"
	"github.com/jt05610/gantry/servo"
	"github.com/jt05610/gantry/stepper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	servePort  string
	serveBaud  int
	serveStdio bool
)

type stdio struct {
	io.Reader
	io.Writer
}

func simHardware() gantry.Hardware {
	return gantry.Hardware{
		X:     stepper.NewSim(),
		Y:     stepper.NewSim(),
		Z:     stepper.NewSim(),
		Rack:  stepper.NewSim(),
		Aux:   stepper.NewSim(),
		Servo: servo.NewSim(),
		Relay: &power.SimRelay{},
	}
}

func publisher() (events.Publisher, func(), error) {
	logPub := events.NewLog(logger.Named("events"))
	if !environ.Telemetry() {
		return logPub, func() {}, nil
	}
	conn, err := amqp.Dial(environ)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("publishing events", zap.String("exchange", environ.Exchange))
	pub := amqp.NewPublisher(conn.Channel, environ.Exchange, logger.Named("amqp"))
	return events.Multi{logPub, pub}, func() {
		_ = conn.Close()
	}, nil
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gantry control loop",
	Long: `Run the gantry control loop on simulated drivers, reading commands from a
serial port (--port or $SERIAL_PORT) or from stdin with --stdio.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := profile.Open(profileName)
		if err != nil {
			return err
		}
		gCfg, err := p.Gantry()
		if err != nil {
			return err
		}
		fwCfg, err := p.Firmware(environ.DeviceID)
		if err != nil {
			return err
		}
		ctrl, err := gantry.New(gCfg, simHardware(), clock.Real{}, logger.Named("gantry"))
		if err != nil {
			return err
		}
		pub, closePub, err := publisher()
		if err != nil {
			return err
		}
		defer closePub()
		fw := firmware.New(fwCfg, ctrl, clock.Real{}, pub, logger.Named("firmware"))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var rw io.ReadWriter
		if serveStdio {
			rw = stdio{Reader: os.Stdin, Writer: os.Stdout}
		} else {
			port := servePort
			if port == "" {
				port = environ.SerialPort
			}
			baud := serveBaud
			if baud == 0 {
				baud = p.Baud
			}
			if baud == 0 {
				baud = environ.Baud
			}
			sp, err := serial.OpenPort(port, baud)
			if err != nil {
				return err
			}
			defer func() {
				_ = sp.Close()
			}()
			rw = sp
			logger.Info("serving", zap.String("port", port), zap.Int("baud", baud), zap.String("profile", p.Name))
		}
		err = fw.Run(ctx, rw)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "serial port (default $SERIAL_PORT)")
	serveCmd.Flags().IntVar(&serveBaud, "baud", 0, "baud rate (default from profile, then $SERIAL_BAUD)")
	serveCmd.Flags().BoolVar(&serveStdio, "stdio", false, "read commands from stdin and reply on stdout")
}
