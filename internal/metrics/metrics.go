package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all campus events metrics
const namespace = "campus_events"

// Registry is the Prometheus registry served at /metrics
var Registry = prometheus.NewRegistry()

// AppInfo exposes build information as labels; the value is always 1.
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// Domain metrics
var (
	// RegistrationAttempts counts registration requests by outcome:
	// created, event_not_found, event_full, already_registered, invalid, error.
	RegistrationAttempts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registration_attempts_total",
			Help:      "Registration attempts by outcome",
		},
		[]string{"outcome"},
	)

	// RegistrationsCancelled counts registration deletions that removed a record.
	RegistrationsCancelled = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_cancelled_total",
			Help:      "Registrations removed by explicit deletion",
		},
	)

	// EventMutations counts administrative event changes by action (create, delete).
	EventMutations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_mutations_total",
			Help:      "Administrative event changes by action",
		},
		[]string{"action"},
	)
)

// Registration outcomes
const (
	OutcomeCreated           = "created"
	OutcomeEventNotFound     = "event_not_found"
	OutcomeEventFull         = "event_full"
	OutcomeAlreadyRegistered = "already_registered"
	OutcomeInvalid           = "invalid"
	OutcomeError             = "error"
)

var initOnce sync.Once

// Init registers runtime collectors and sets build information. Later calls
// only update AppInfo.
func Init(version, commit, buildDate string) {
	initOnce.Do(func() {
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})

	AppInfo.Reset()
	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}
