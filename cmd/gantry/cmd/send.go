/*
Copyright © 2024 Jonathan Taylor <jonrtaylor12@gmail.com>
*/

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jt05610/gantry/client"
	"github.com/jt05610/gantry/profile"
	"github.com/spf13/cobra"
)

var (
	sendPort    string
	sendTimeout time.Duration
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send FRAME...",
	Short: "Send commands to a gantry",
	Long: `Open the gantry's serial port, wait for its ready line and send each frame in
turn, printing the responses. For example:

  gantry send 'hardHome()' 'move(60,40,-10)' 'mix(25, 100)'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := profile.Open(profileName)
		if err != nil {
			return err
		}
		port := sendPort
		if port == "" {
			port = environ.SerialPort
		}
		baud := p.Baud
		if baud == 0 {
			baud = environ.Baud
		}
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		c, err := client.Open(ctx, port, baud, p.Ready, logger.Named("client"))
		if err != nil {
			return err
		}
		defer func() {
			_ = c.Close()
		}()
		for _, frame := range args {
			resp, err := c.Send(ctx, frame)
			if err != nil {
				return err
			}
			fmt.Println(resp)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendPort, "port", "", "serial port (default $SERIAL_PORT)")
	sendCmd.Flags().DurationVarP(&sendTimeout, "timeout", "t", 10*time.Minute, "overall timeout")
}
