package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalOptions are persistent flags shared by every subcommand.
type globalOptions struct {
	logLevel  string
	logFormat string
}

func newRootCommand() *cobra.Command {
	globals := &globalOptions{}
	serveCmd := newServeCommand(globals)

	root := &cobra.Command{
		Use:   "server",
		Short: "Campus events server - event listings and student registrations",
		Long: `Campus events server exposes a JSON API for browsing campus events,
registering students for them and managing the event catalog.

State is held in memory and seeded from a catalog on startup.`,
		SilenceUsage: true,
		// Run the serve command by default if no subcommand is specified
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
	}

	root.PersistentFlags().StringVar(&globals.logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	root.PersistentFlags().StringVar(&globals.logFormat, "log-format", "", "log format (json, console) (default: json)")

	// serve's flags are accepted on the bare root command too.
	root.Flags().AddFlagSet(serveCmd.Flags())

	root.AddCommand(serveCmd)
	root.AddCommand(newVersionCommand())
	root.AddCommand(newHealthcheckCommand())
	root.AddCommand(newEventsCommand())
	root.AddCommand(newLoadtestCommand())
	return root
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
