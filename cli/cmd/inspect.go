package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/workerbuild/cli/output"
	"github.com/fluxbase-eu/workerbuild/internal/bundle"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List the files of the built worker",
	Long: `List the artifacts currently in ./worker with their sizes.

Examples:
  workerbuild inspect
  workerbuild inspect -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter(cmd)
		if err != nil {
			return err
		}

		artifacts, err := bundle.New().Artifacts()
		if err != nil {
			return err
		}
		if len(artifacts) == 0 {
			formatter.PrintSuccess("No worker built yet, run 'workerbuild build'")
			return nil
		}

		table := output.TableData{Headers: []string{"NAME", "PATH", "SIZE"}}
		for _, a := range artifacts {
			table.Rows = append(table.Rows, []string{a.Name, a.Path, bundle.FormatSize(float64(a.Size))})
		}
		return formatter.Print(artifacts, table)
	},
}
