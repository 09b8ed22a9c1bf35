package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "pecsa",
		Short:         "PECSA administration console",
		Long:          `pecsa serves the PECSA back-office for collaborators, users and roles, and manages its database.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the process environment")

	root.AddCommand(newServeCommand(&envFile))
	root.AddCommand(newInitDBCommand(&envFile))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pecsa %s (commit: %s, built: %s)\n", version, commit, date)
		},
	})
	return root
}
