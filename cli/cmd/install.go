package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/workerbuild/internal/wranglerjs"
)

var installDeps bool

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install wrangler-js with npm",
	Long: `Install wrangler-js into ./node_modules using npm.

With --deps, run a plain "npm install" for the project's dependencies instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter(cmd)
		if err != nil {
			return err
		}
		builder, err := newBuilder(cmd)
		if err != nil {
			return err
		}

		if installDeps {
			if err := builder.InstallDependencies(cmd.Context()); err != nil {
				return err
			}
			formatter.PrintSuccess("Dependencies installed")
			return nil
		}

		if err := builder.Install(cmd.Context()); err != nil {
			return err
		}
		formatter.PrintSuccess("wrangler-js installed at " + wranglerjs.ExecutablePath())
		return nil
	},
}

func init() {
	installCmd.Flags().BoolVar(&installDeps, "deps", false, "Install the project's dependencies instead of wrangler-js")
}
