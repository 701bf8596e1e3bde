package cmd

import (
	"context"
	"fmt"
	"time"

	"roster/internal/app"
	"roster/internal/services"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveSilent suppresses log output. The startup spinner is suppressed
// with it.
var serveSilent bool

// serveConfigPath specifies a custom configuration directory path.
// When empty, the default user configuration directory is used.
var serveConfigPath string

// serveWatch enables the definition watcher so edits to service
// definition files feed the running services as data updates.
var serveWatch bool

// serveCmd defines the serve command structure. This is the main command
// of roster: it loads the configured services and runs the update loop
// until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the configured services until interrupted",
	Long: `Loads the service definitions from the configuration directory, brings
the auto-start services up in dependency order and keeps running the
update loop. Teardown cascades, dependency guards and data updates are
all processed by that loop, one cycle at a time.

Configuration:
  The configuration directory contains config.yaml (cycle interval, log
  level) and a services/ subdirectory with one YAML file per service
  definition. The default directory is ~/.config/roster.

  With --watch, edits to files under services/ are applied to the
  running services as data updates.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command.
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveDebug, serveSilent, serveConfigPath, serveWatch)

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !serveSilent && !serveDebug {
		go showStartupProgress(ctx, application)
	}
	return application.Run(ctx)
}

// showStartupProgress runs a spinner until every auto-start service has
// settled, then prints a one-line summary.
func showStartupProgress(ctx context.Context, application *app.Application) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Starting services..."
	s.Start()
	defer s.Stop()

	orch := application.Orchestrator()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			up, pending := 0, 0
			for _, status := range orch.Services() {
				if !status.AutoStart {
					continue
				}
				switch status.State {
				case services.StateUp:
					up++
				case services.StateInitializing:
					pending++
				}
			}
			if pending == 0 && orch.PendingCommands() == 0 {
				s.FinalMSG = fmt.Sprintf("Started: %d services up\n", up)
				return
			}
		}
	}
}

// init registers the serve command and its flags with the root command.
func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable general debug logging")
	serveCmd.Flags().BoolVar(&serveSilent, "silent", false, "Suppress log output")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Custom configuration directory path")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Apply service definition edits to the running services")
}
