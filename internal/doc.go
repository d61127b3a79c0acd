// Package internal documents the campus events server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, problem responses, and routing
// - domain: events and registrations business rules, identifiers
// - storage: repository interfaces and the in-memory store
// - seed: the startup event catalog
// - audit, config, metrics, sanitize, telemetry: shared infrastructure
// - loadtest: synthetic traffic generator used by the CLI
//
// Code in internal/ is not meant for external import.
package internal
