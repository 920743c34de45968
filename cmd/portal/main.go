package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal",
		Short: "Dairy distribution management portal",
		Long: `Portal serves the management views of the dairy distribution company.

It keeps one session per browser in Redis, closes idle sessions and
forwards every view to the management API with the session's credential.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		devAPICmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
