package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the roster application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "roster",
	Short: "Cycle-driven service lifecycle orchestration",
	Long: `roster orchestrates services over a dependency graph. Services are
declared in YAML with their dependencies on other services, external
resources and assets; roster brings them up in dependency order, tears
them down in cascades when a dependency fails, and keeps the whole graph
consistent one update cycle at a time.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the
// application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application. It is called
// by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "roster version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
