package commands

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(discoverCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Prints the regions and precincts reachable from the region index.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(cmd, nil)
		if err != nil {
			return err
		}
		defer closeApp(cmd, a)

		hierarchy, err := a.Discover(cmd.Context())
		if err != nil {
			return err
		}

		renderHierarchy(cmd.OutOrStdout(), hierarchy)
		return nil
	},
}
