// Package middleware provides HTTP middleware for the stackkit inspector and
// any other chi router serving a stack.
//
// This package includes:
//   - OpenTelemetry tracing middleware
//   - Prometheus request metrics middleware
//   - Structured request logging
//
// # OpenTelemetry Middleware
//
// OpenTelemetry starts a server span per request, named after the chi route
// pattern once routing has happened:
//
//	r := chi.NewRouter()
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("stackkit-demo"),
//	    middleware.WithFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/ws"
//	    }),
//	))
//
// The span is stored in the request context so stack operations started by
// the handler become its children.
//
// # Prometheus Metrics
//
// Prometheus records per route:
//   - stackkit_http_requests_total: requests by method, route and status class
//   - stackkit_http_request_duration_seconds: request duration histogram
//   - stackkit_http_requests_in_flight: requests being served
//
//	r.Use(middleware.Prometheus(middleware.WithRegistry(reg)))
//	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # Logging
//
// Logger writes one slog record per request, including the chi request id
// when middleware.RequestID from chi runs first.
package middleware
