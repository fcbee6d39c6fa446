/*
Copyright © 2024 Jonathan Taylor <jonrtaylor12@gmail.com>
*/

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/jt05610/gantry/amqp"
	"github.com/jt05610/gantry/events"
	"github.com/spf13/cobra"
)

var watchDevice string

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print gantry events published to the broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !environ.Telemetry() {
			return errors.New("RABBITMQ_URI and AMQP_EXCHANGE must be set")
		}
		conn, err := amqp.Dial(environ)
		if err != nil {
			return err
		}
		defer func() {
			_ = conn.Close()
		}()
		device := watchDevice
		if device == "" {
			device = environ.DeviceID
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		enc := json.NewEncoder(os.Stdout)
		err = amqp.Subscribe(ctx, conn, environ.Exchange, device, func(e *events.Event) {
			if err := enc.Encode(e); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}, logger.Named("watch"))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchDevice, "device", "d", "", "device id, or * for all (default $DEVICE_ID)")
}
