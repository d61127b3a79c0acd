package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/campus-events/server/internal/domain/events"
	"github.com/spf13/cobra"
)

type eventsOptions struct {
	serverURL string
	category  []string
	query     string
	format    string
	timeout   time.Duration
}

func newEventsCommand() *cobra.Command {
	opts := &eventsOptions{}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List events from a running server",
		Long: `Query the events API of a running server and print the results.

Examples:
  # List all events
  server events

  # Only sports and social events
  server events --category Sports,Social

  # Search titles and locations
  server events --q library

  # Query a custom server and output raw JSON
  server events --server http://localhost:9090 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != "table" && opts.format != "json" {
				return fmt.Errorf("unsupported format %q (must be 'table' or 'json')", opts.format)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			list, err := fetchEvents(ctx, http.DefaultClient, opts)
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), list, opts.format)
		},
	}

	cmd.Flags().StringVar(&opts.serverURL, "server", "http://localhost:8080", "server base URL")
	cmd.Flags().StringSliceVar(&opts.category, "category", nil, "filter by category (repeat or comma-separate)")
	cmd.Flags().StringVar(&opts.query, "q", "", "case-insensitive search over title and location")
	cmd.Flags().StringVar(&opts.format, "format", "table", "output format (table, json)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	return cmd
}

func eventsURL(opts *eventsOptions) (string, error) {
	base, err := url.Parse(strings.TrimRight(opts.serverURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid server URL %q", opts.serverURL)
	}
	base.Path += "/api/events"

	query := url.Values{}
	if len(opts.category) > 0 {
		query.Set("category", strings.Join(opts.category, ","))
	}
	if opts.query != "" {
		query.Set("q", opts.query)
	}
	base.RawQuery = query.Encode()
	return base.String(), nil
}

func fetchEvents(ctx context.Context, client *http.Client, opts *eventsOptions) ([]events.Event, error) {
	target, err := eventsURL(opts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var p struct {
			Detail string `json:"detail"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(body, &p) == nil && p.Detail != "" {
			return nil, fmt.Errorf("server returned error %d: %s", resp.StatusCode, p.Detail)
		}
		return nil, fmt.Errorf("server returned error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var list []events.Event
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return list, nil
}

func printEvents(out io.Writer, list []events.Event, format string) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	if len(list) == 0 {
		_, err := fmt.Fprintln(out, "No events found.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tWHEN\tLOCATION\tSEATS")
	for _, event := range list {
		seats := fmt.Sprintf("%d/%d", event.Registered, event.Capacity)
		if event.Full() {
			seats += " full"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%s\t%s\n",
			event.ID, truncate(event.Title, 40), event.Category, event.Date, event.Time, truncate(event.Location, 30), seats)
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
