package metrics

import (
	"context"
	"time"

	"github.com/campus-events/server/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Store metrics
var (
	StoreEvents = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_events",
			Help:      "Number of events currently stored",
		},
	)

	StoreRegistrations = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_registrations",
			Help:      "Number of registrations currently stored",
		},
	)

	StoreFullEvents = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_full_events",
			Help:      "Number of events with no seats left",
		},
	)

	StoreSeats = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_seats",
			Help:      "Seats across all events by state (total, taken)",
		},
		[]string{"state"},
	)
)

// StatsSource reports store statistics.
type StatsSource interface {
	Stats(ctx context.Context) (storage.Stats, error)
}

// StoreCollector periodically publishes store statistics as gauges.
type StoreCollector struct {
	source StatsSource
	logger zerolog.Logger
}

func NewStoreCollector(source StatsSource, logger zerolog.Logger) *StoreCollector {
	return &StoreCollector{source: source, logger: logger}
}

// Run collects immediately and then every interval until ctx is done.
func (c *StoreCollector) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Collect(ctx)

	for {
		select {
		case <-ticker.C:
			c.Collect(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// Collect gathers current store statistics and updates the gauges.
func (c *StoreCollector) Collect(ctx context.Context) {
	if c.source == nil {
		return
	}

	stats, err := c.source.Stats(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn().Err(err).Msg("store stats collection failed")
		}
		return
	}

	StoreEvents.Set(float64(stats.Events))
	StoreRegistrations.Set(float64(stats.Registrations))
	StoreFullEvents.Set(float64(stats.FullEvents))
	StoreSeats.WithLabelValues("total").Set(float64(stats.SeatsTotal))
	StoreSeats.WithLabelValues("taken").Set(float64(stats.SeatsTaken))
}
