// Package main hosts the site grading service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes the grading endpoints and a small
//     server-rendered UI. POST /v1/grades streams run observations as NDJSON;
//     GET /v1/grades/{site} returns the cached report for a site.
//   - Run pipeline: internal/run.Runner drives one request end to end. The
//     cache verdict comes first; on a miss the site and profile scrapes run
//     concurrently via the Exa client, then the grading client streams report
//     frames which are merged monotonically and republished to the caller.
//   - Persistence & fanout: completed reports are written whole to the
//     configured cache backend (Postgres JSONB or memory) on a detached
//     context so a slow write never delays the response. A compact completion
//     event is published to Pub/Sub when a topic is configured.
//   - Configuration & plumbing: Viper populates config from env/files with
//     the SITEGRADE_ prefix; zap provides structured logging; Prometheus
//     metrics are exported via the metrics middleware and /metrics handler.
//     The service is stateless across requests, suitable for Cloud Run
//     scale-out.
//
// Operational notes:
//   - Concurrency model: one goroutine per run plus two short-lived scrape
//     goroutines; detached writes are tracked and drained on shutdown.
//   - Rate limiting: the grading client paces requests with a token bucket
//     and falls back once to a lower-tier model on a 429.
//   - Cloud Run: the HTTP server listens on the configured port, health
//     endpoints (/healthz, /readyz) stay lightweight, and the process reacts
//     to SIGTERM with a bounded graceful drain.
//
// Run locally: go run ./cmd/sitegrade -config config.yaml (or rely solely on
// SITEGRADE_* env overrides).
package main
