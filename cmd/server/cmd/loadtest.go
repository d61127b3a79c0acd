package cmd

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/campus-events/server/internal/loadtest"
	"github.com/spf13/cobra"
)

type loadtestOptions struct {
	serverURL string
	profile   string
	rps       int
	duration  time.Duration
	readRatio float64
	noRamp    bool
}

func newLoadtestCommand() *cobra.Command {
	opts := &loadtestOptions{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Generate browse and registration traffic against a running server",
		Long: `Drive synthetic traffic against a running server, print latency and
status statistics, then verify that no event holds more registrations than
its capacity.

Profiles: light, medium, heavy, rush.

Examples:
  # Light profile against a local server
  server loadtest

  # Registration rush for 30 seconds
  server loadtest --profile rush --duration 30s

  # Custom rate without ramping
  server loadtest --rps 40 --read-ratio 0.5 --no-ramp`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ok := loadtest.Profiles[loadtest.Profile(opts.profile)]
			if !ok {
				return fmt.Errorf("unknown profile %q", opts.profile)
			}
			if opts.rps > 0 {
				cfg.RequestsPerSecond = opts.rps
			}
			if opts.duration > 0 {
				cfg.Duration = opts.duration
			}
			if cmd.Flags().Changed("read-ratio") {
				if opts.readRatio < 0 || opts.readRatio > 1 {
					return fmt.Errorf("read-ratio must be between 0.0 and 1.0")
				}
				cfg.ReadRatio = opts.readRatio
			}
			if opts.noRamp {
				cfg.RampUpTime = 0
				cfg.RampDownTime = 0
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Running load test against %s\n", opts.serverURL)
			fmt.Fprintf(out, "  RPS: %d, duration: %s, reads: %.0f%%\n",
				cfg.RequestsPerSecond, cfg.TotalDuration(), cfg.ReadRatio*100)

			tester := loadtest.NewTester(opts.serverURL, &http.Client{Timeout: 30 * time.Second})
			stats, err := tester.RunCustom(ctx, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, stats.Report())

			// The run context may already be cancelled by a signal.
			violations, err := tester.VerifyCapacity(cmd.Context())
			if err != nil {
				return fmt.Errorf("verify capacity: %w", err)
			}
			for _, v := range violations {
				fmt.Fprintf(out, "OVERBOOKED %s: %d/%d\n", v.EventID, v.Registered, v.Capacity)
			}
			if len(violations) > 0 {
				return fmt.Errorf("%d events exceed capacity", len(violations))
			}
			fmt.Fprintln(out, "Capacity check passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.serverURL, "server", "http://localhost:8080", "server base URL")
	cmd.Flags().StringVar(&opts.profile, "profile", string(loadtest.ProfileLight), "load profile (light, medium, heavy, rush)")
	cmd.Flags().IntVar(&opts.rps, "rps", 0, "requests per second (overrides profile)")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "steady-state duration (overrides profile)")
	cmd.Flags().Float64Var(&opts.readRatio, "read-ratio", 0, "share of browse requests 0.0-1.0 (overrides profile)")
	cmd.Flags().BoolVar(&opts.noRamp, "no-ramp", false, "start and stop at full rate")
	return cmd
}
