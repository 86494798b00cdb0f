package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/workerbuild/internal/bundle"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the built worker",
	Long:  `Remove ./worker and everything in it.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter(cmd)
		if err != nil {
			return err
		}

		b := bundle.New()
		if err := b.Clean(); err != nil {
			return err
		}
		formatter.PrintSuccess("Removed " + b.Dir())
		return nil
	},
}
