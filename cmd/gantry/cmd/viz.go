/*
Copyright © 2024 Jonathan Taylor <jonrtaylor12@gmail.com>
*/

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jt05610/gantry/gantry"
	"github.com/jt05610/gantry/graphviz"
	"github.com/spf13/cobra"
)

var (
	format    string
	outputDir string
)

// vizCmd represents the viz command
var vizCmd = &cobra.Command{
	Use:   "viz",
	Short: "Draw the homing state machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &graphviz.Config{
			Name:    "homing",
			Font:    graphviz.Helvetica,
			RankDir: graphviz.LeftToRight,
			Format:  graphviz.Format(format),
		}
		if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
			return err
		}
		outPath := filepath.Join(outputDir, cfg.Name+"."+format)
		fmt.Printf("writing homing diagram to %s...", outPath)
		df, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer func() {
			_ = df.Close()
		}()
		if err := graphviz.New(cfg).Flush(df, gantry.Transitions); err != nil {
			return err
		}
		fmt.Println("done")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(vizCmd)
	vizCmd.Flags().StringVarP(&outputDir, "output", "o", ".", "output directory")
	vizCmd.Flags().StringVarP(&format, "format", "f", "svg", "output format")
}
