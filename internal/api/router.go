package api

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/campus-events/server/internal/api/handlers"
	"github.com/campus-events/server/internal/api/middleware"
	"github.com/campus-events/server/internal/api/problem"
	"github.com/campus-events/server/internal/audit"
	"github.com/campus-events/server/internal/config"
	"github.com/campus-events/server/internal/domain/events"
	"github.com/campus-events/server/internal/domain/registrations"
	"github.com/campus-events/server/internal/metrics"
	"github.com/campus-events/server/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps are the collaborators the HTTP surface is built from.
type RouterDeps struct {
	Config    config.Config
	Logger    zerolog.Logger
	Store     storage.Repository
	Lifecycle *handlers.Lifecycle
	Build     BuildInfo
}

// NewRouter builds the domain services over deps.Store and returns the fully
// wrapped HTTP handler. ctx bounds background work such as rate limiter
// cleanup.
func NewRouter(ctx context.Context, deps RouterDeps) http.Handler {
	cfg := deps.Config
	lifecycle := deps.Lifecycle
	if lifecycle == nil {
		lifecycle = &handlers.Lifecycle{}
	}

	eventsService := events.NewService(deps.Store.Events(),
		events.WithStrictCategories(cfg.Events.StrictCategories))
	regsService := registrations.NewService(deps.Store.Registrations(), deps.Store.Events(),
		registrations.WithCaseInsensitiveEmail(cfg.Registration.CaseInsensitiveEmail))

	eventsHandler := handlers.NewEventsHandler(eventsService, regsService, audit.NewLogger(deps.Logger), cfg.Environment, cfg.Server.BaseURL)
	regsHandler := handlers.NewRegistrationsHandler(regsService, cfg.Environment)
	healthChecker := handlers.NewHealthChecker(deps.Store, lifecycle, deps.Build.Version, deps.Build.GitCommit)

	rateLimit := middleware.RateLimit(ctx, cfg.RateLimit)
	public := func(h http.HandlerFunc) http.Handler {
		return rateLimit(middleware.PublicRequestSize()(h))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierAdmin)(
			rateLimit(middleware.AdminRequestSize()(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", getOnly(handlers.Healthz(lifecycle)))
	mux.Handle("/readyz", getOnly(handlers.Readyz(lifecycle)))
	mux.Handle("/health", getOnly(healthChecker.Health()))
	mux.Handle("/version", getOnly(VersionHandler(deps.Build)))
	mux.Handle("/metrics", getOnly(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	mux.Handle("/api/openapi.json", OpenAPIHandler())

	mux.Handle("/api/events", methodMux(map[string]http.Handler{
		http.MethodGet:  public(eventsHandler.List),
		http.MethodPost: admin(eventsHandler.Create),
	}))
	mux.Handle("/api/events/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    public(eventsHandler.Get),
		http.MethodDelete: admin(eventsHandler.Delete),
	}))
	mux.Handle("/api/events/{id}/registrations", methodMux(map[string]http.Handler{
		http.MethodGet: admin(eventsHandler.ListRegistrations),
	}))
	mux.Handle("/api/registrations", methodMux(map[string]http.Handler{
		http.MethodPost: public(regsHandler.Create),
	}))
	mux.Handle("/api/registrations/student/{email}", methodMux(map[string]http.Handler{
		http.MethodGet: public(regsHandler.ListForStudent),
	}))
	mux.Handle("/api/registrations/{id}", methodMux(map[string]http.Handler{
		http.MethodDelete: public(regsHandler.Delete),
	}))
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", nil, cfg.Environment,
			problem.WithDetail("Resource not found"))
	}))

	// metrics.HTTPMiddleware must wrap the mux directly so the matched
	// pattern is visible to it and to Tracing.
	var handler http.Handler = metrics.HTTPMiddleware(mux)
	handler = middleware.Tracing(handler)
	handler = middleware.CORS(cfg.CORS, deps.Logger)(handler)
	handler = middleware.SecurityHeaders(cfg.Environment == "production")(handler)
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	handler = middleware.Recovery(cfg.Environment)(handler)
	return handler
}

func getOnly(h http.Handler) http.Handler {
	return methodMux(map[string]http.Handler{http.MethodGet: h})
}

// methodMux dispatches on request method and answers 405 with an Allow
// header for anything else.
func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		problem.Write(w, r, http.StatusMethodNotAllowed, problem.TypeMethodNotAllowed, "Method not allowed", nil, "",
			problem.WithDetail("Method "+r.Method+" is not allowed"))
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
