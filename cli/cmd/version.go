package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show workerbuild version information",
	Long:  `Display the version, commit hash, and build date of workerbuild.`,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(w, "workerbuild %s\n", Version)
		_, _ = fmt.Fprintf(w, "Commit: %s\n", Commit)
		_, _ = fmt.Fprintf(w, "Build Date: %s\n", BuildDate)
	},
}
