// Package loadtest drives synthetic browse and registration traffic against a
// running campus events server and checks the capacity invariant afterwards.
package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/campus-events/server/internal/domain/events"
	"golang.org/x/sync/errgroup"
)

// Profile names a predefined traffic shape.
type Profile string

const (
	ProfileLight  Profile = "light"  // 5 req/s, 1 minute
	ProfileMedium Profile = "medium" // 20 req/s, 2 minutes
	ProfileHeavy  Profile = "heavy"  // 50 req/s, 5 minutes
	ProfileRush   Profile = "rush"   // registration opening: 100 req/s, mostly writes
)

// Config defines the parameters for a load test.
type Config struct {
	RequestsPerSecond int
	Duration          time.Duration
	RampUpTime        time.Duration
	RampDownTime      time.Duration
	// ReadRatio is the share of browse requests; the rest are registrations.
	ReadRatio float64
}

// TotalDuration is ramp-up plus steady state plus ramp-down.
func (c Config) TotalDuration() time.Duration {
	return c.RampUpTime + c.Duration + c.RampDownTime
}

// Profiles contains the predefined scenarios.
var Profiles = map[Profile]Config{
	ProfileLight: {
		RequestsPerSecond: 5,
		Duration:          time.Minute,
		RampUpTime:        10 * time.Second,
		RampDownTime:      10 * time.Second,
		ReadRatio:         0.8,
	},
	ProfileMedium: {
		RequestsPerSecond: 20,
		Duration:          2 * time.Minute,
		RampUpTime:        20 * time.Second,
		RampDownTime:      20 * time.Second,
		ReadRatio:         0.8,
	},
	ProfileHeavy: {
		RequestsPerSecond: 50,
		Duration:          5 * time.Minute,
		RampUpTime:        30 * time.Second,
		RampDownTime:      30 * time.Second,
		ReadRatio:         0.7,
	},
	ProfileRush: {
		RequestsPerSecond: 100,
		Duration:          time.Minute,
		ReadRatio:         0.2,
	},
}

// Tester orchestrates a load test against one server.
type Tester struct {
	baseURL  string
	client   *http.Client
	eventIDs []string
	students atomic.Int64
	stats    *Statistics
}

// NewTester creates a tester targeting baseURL. A nil client gets a 30s timeout.
func NewTester(baseURL string, client *http.Client) *Tester {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Tester{baseURL: baseURL, client: client}
}

// Run executes the named profile.
func (t *Tester) Run(ctx context.Context, profile Profile) (*Statistics, error) {
	cfg, ok := Profiles[profile]
	if !ok {
		return nil, fmt.Errorf("unknown profile: %s", profile)
	}
	return t.RunCustom(ctx, cfg)
}

// RunCustom executes a load test with cfg. It returns once the schedule
// completes or ctx is cancelled.
func (t *Tester) RunCustom(ctx context.Context, cfg Config) (*Statistics, error) {
	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("requests per second must be positive, got %d", cfg.RequestsPerSecond)
	}

	list, err := t.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover events: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("discover events: server has no events")
	}
	t.eventIDs = make([]string, 0, len(list))
	for _, event := range list {
		t.eventIDs = append(t.eventIDs, event.ID)
	}

	t.stats = newStatistics()

	workers := max(cfg.RequestsPerSecond*2, 10)
	work := make(chan workItem, workers*2)

	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			for item := range work {
				t.execute(gctx, item)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(work)
		t.generate(gctx, cfg, work)
		return nil
	})
	_ = g.Wait()

	t.stats.end = time.Now()
	return t.stats, nil
}

type workItem struct {
	method   string
	path     string
	body     any
	endpoint string
}

func (t *Tester) generate(ctx context.Context, cfg Config, work chan<- workItem) {
	start := time.Now()

	rps := CurrentRPS(0, cfg)
	ticker := time.NewTicker(time.Second / time.Duration(rps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed := time.Since(start)
			if elapsed > cfg.TotalDuration() {
				return
			}
			if next := CurrentRPS(elapsed, cfg); next != rps {
				rps = next
				ticker.Reset(time.Second / time.Duration(rps))
			}

			item := t.registrationRequest()
			if rand.Float64() < cfg.ReadRatio {
				item = t.browseRequest()
			}
			select {
			case work <- item:
			case <-ctx.Done():
				return
			}
		}
	}
}

// CurrentRPS is the target rate at elapsed into the schedule, never below 1.
func CurrentRPS(elapsed time.Duration, cfg Config) int {
	target := cfg.RequestsPerSecond

	if elapsed < cfg.RampUpTime {
		return max(int(float64(target)*float64(elapsed)/float64(cfg.RampUpTime)), 1)
	}

	steadyEnd := cfg.RampUpTime + cfg.Duration
	if elapsed < steadyEnd {
		return target
	}

	if down := elapsed - steadyEnd; down < cfg.RampDownTime {
		return max(int(float64(target)*(1.0-float64(down)/float64(cfg.RampDownTime))), 1)
	}
	return 1
}

func (t *Tester) browseRequest() workItem {
	id := t.eventIDs[rand.IntN(len(t.eventIDs))]
	category := events.Categories[rand.IntN(len(events.Categories))]

	operations := []workItem{
		{method: http.MethodGet, path: "/api/events", endpoint: "list_events"},
		{method: http.MethodGet, path: "/api/events?category=" + url.QueryEscape(category), endpoint: "filter_events"},
		{method: http.MethodGet, path: "/api/events/" + id, endpoint: "get_event"},
		{method: http.MethodGet, path: "/health", endpoint: "health"},
	}
	return operations[rand.IntN(len(operations))]
}

// registrationRequest registers a fresh student so duplicates never mask
// capacity rejections.
func (t *Tester) registrationRequest() workItem {
	n := t.students.Add(1)
	return workItem{
		method: http.MethodPost,
		path:   "/api/registrations",
		body: map[string]string{
			"eventId":      t.eventIDs[rand.IntN(len(t.eventIDs))],
			"studentName":  fmt.Sprintf("Load Student %d", n),
			"studentEmail": fmt.Sprintf("load%d@campus.test", n),
			"studentId":    fmt.Sprintf("LT%07d", n),
		},
		endpoint: "register",
	}
}

func (t *Tester) execute(ctx context.Context, item workItem) {
	var body io.Reader
	if item.body != nil {
		data, err := json.Marshal(item.body)
		if err != nil {
			t.stats.record(item.endpoint, 0, 0)
			return
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, item.method, t.baseURL+item.path, body)
	if err != nil {
		t.stats.record(item.endpoint, 0, 0)
		return
	}
	if item.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		t.stats.record(item.endpoint, 0, time.Since(start))
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	t.stats.record(item.endpoint, resp.StatusCode, time.Since(start))
}

// ListEvents fetches the full catalog.
func (t *Tester) ListEvents(ctx context.Context) ([]events.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/api/events", nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list events: status %d", resp.StatusCode)
	}
	var list []events.Event
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return list, nil
}

// Violation is an event whose registered count exceeds its capacity.
type Violation struct {
	EventID    string
	Capacity   int
	Registered int
}

// VerifyCapacity reports every event with registered > capacity.
func (t *Tester) VerifyCapacity(ctx context.Context) ([]Violation, error) {
	list, err := t.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	var violations []Violation
	for _, event := range list {
		if event.Registered > event.Capacity {
			violations = append(violations, Violation{
				EventID:    event.ID,
				Capacity:   event.Capacity,
				Registered: event.Registered,
			})
		}
	}
	return violations, nil
}

// Statistics accumulates per-endpoint outcomes. Status 0 means a transport
// error.
type Statistics struct {
	mu        sync.Mutex
	total     int64
	success   int64
	statuses  map[int]int64
	latencies []time.Duration
	endpoints map[string]*endpointStats
	start     time.Time
	end       time.Time
}

type endpointStats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func newStatistics() *Statistics {
	return &Statistics{
		statuses:  make(map[int]int64),
		endpoints: make(map[string]*endpointStats),
		start:     time.Now(),
	}
}

func (s *Statistics) record(endpoint string, status int, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.statuses[status]++

	ep := s.endpoints[endpoint]
	if ep == nil {
		ep = &endpointStats{}
		s.endpoints[endpoint] = ep
	}
	ep.count++

	if status >= 200 && status < 300 {
		s.success++
	} else {
		ep.errors++
	}
	if status != 0 {
		s.latencies = append(s.latencies, latency)
		ep.latencies = append(ep.latencies, latency)
	}
}

// Total is the number of requests issued.
func (s *Statistics) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// StatusCount is the number of responses with status.
func (s *Statistics) StatusCount(status int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[status]
}

// Report renders a plain-text summary.
func (s *Statistics) Report() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b bytes.Buffer
	elapsed := s.end.Sub(s.start)

	fmt.Fprintf(&b, "\nLOAD TEST RESULTS\n\n")
	fmt.Fprintf(&b, "Duration:        %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "Total Requests:  %d\n", s.total)
	if s.total > 0 {
		fmt.Fprintf(&b, "Successful:      %d (%.1f%%)\n", s.success, pct(s.success, s.total))
		fmt.Fprintf(&b, "Non-2xx:         %d (%.1f%%)\n", s.total-s.success, pct(s.total-s.success, s.total))
	}
	if elapsed > 0 {
		fmt.Fprintf(&b, "Requests/sec:    %.2f\n", float64(s.total)/elapsed.Seconds())
	}

	if len(s.latencies) > 0 {
		fmt.Fprintf(&b, "\nResponse Times:\n")
		fmt.Fprintf(&b, "  p50:  %s\n", Percentile(s.latencies, 0.50))
		fmt.Fprintf(&b, "  p95:  %s\n", Percentile(s.latencies, 0.95))
		fmt.Fprintf(&b, "  p99:  %s\n", Percentile(s.latencies, 0.99))
	}

	if len(s.statuses) > 0 {
		codes := make([]int, 0, len(s.statuses))
		for code := range s.statuses {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		fmt.Fprintf(&b, "\nResponses by Status:\n")
		for _, code := range codes {
			label := fmt.Sprintf("%d", code)
			if code == 0 {
				label = "transport"
			}
			fmt.Fprintf(&b, "  %-10s %d\n", label, s.statuses[code])
		}
	}

	if len(s.endpoints) > 0 {
		names := make([]string, 0, len(s.endpoints))
		for name := range s.endpoints {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintf(&b, "\n%-16s %8s %8s %12s\n", "Endpoint", "Count", "Non-2xx", "p95")
		for _, name := range names {
			ep := s.endpoints[name]
			fmt.Fprintf(&b, "%-16s %8d %8d %12s\n", name, ep.count, ep.errors, Percentile(ep.latencies, 0.95))
		}
	}
	return b.String()
}

func pct(n, total int64) float64 {
	return float64(n) / float64(total) * 100
}

// Percentile returns the p-th latency (0 < p <= 1) using nearest rank.
func Percentile(latencies []time.Duration, p float64) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	sorted := slices.Clone(latencies)
	slices.Sort(sorted)

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
