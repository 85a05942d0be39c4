// Package health provides HTTP probes for queue consumers.
//
// Handlers:
//   - Liveness: the process is running (no dependency checks)
//   - Readiness: every dependency check passes
//
// Usage:
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("GET /health/live", health.Liveness)
//	mux.Handle("GET /health/ready", health.Readiness(log,
//		q.Healthcheck,
//		sqs.Healthcheck(svc, queueURL),
//	))
//
// Dependency checks must follow the func(context.Context) error signature.
package health
