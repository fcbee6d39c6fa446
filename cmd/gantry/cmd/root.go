/*
Copyright © 2024 Jonathan Taylor <jonrtaylor12@gmail.com>
*/

package cmd

import (
	"github.com/jt05610/gantry/env"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	profileName string
	verbose     bool
	logger      *zap.Logger
	environ     *env.Environment
)

// rootCmd represents the root command
var rootCmd = &cobra.Command{
	Use:   "gantry",
	Short: "gantry runs and talks to liquid-handling gantry firmware",
	Long: `gantry runs the gantry control loop against simulated drivers on a serial
port or stdio, sends commands to a gantry from the host, and inspects hardware
profiles and the homing state machine.

Settings are read from the environment and an optional .env file:
SERIAL_PORT, SERIAL_BAUD, GANTRY_PROFILE, DEVICE_ID, RABBITMQ_URI and
AMQP_EXCHANGE.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return err
		}
		environ = env.LoadEnv(logger)
		if profileName == "" {
			profileName = environ.Profile
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "builtin profile name or profile file (default $GANTRY_PROFILE or gantry-kit)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "development logging")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
