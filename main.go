// Package main provides the entry point for the telecalling appointment service
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "telecall",
		Short:         "Telecalling records with recyclable appointment ids",
		Long:          `Telecall serves the telecalling dashboard API, manages its schema, and administers the appointment id allocator.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newAppointmentsCommand(),
		newTokenCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
