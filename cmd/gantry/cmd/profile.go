/*
Copyright © 2024 Jonathan Taylor <jonrtaylor12@gmail.com>
*/

package cmd

import (
	"fmt"
	"os"

	"github.com/jt05610/gantry/profile"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var listProfiles bool

// profileCmd represents the profile command
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Print a hardware profile with every expression evaluated",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listProfiles {
			for _, n := range profile.Names() {
				fmt.Println(n)
			}
			return nil
		}
		p, err := profile.Open(profileName)
		if err != nil {
			return err
		}
		r, err := p.Resolve()
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer func() {
			_ = enc.Close()
		}()
		return enc.Encode(r)
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().BoolVarP(&listProfiles, "list", "l", false, "list builtin profiles")
}
