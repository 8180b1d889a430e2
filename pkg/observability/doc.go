/*
Package observability exposes the assistant's Prometheus metrics.

Metrics live in their own registry together with the Go runtime and process
collectors, and are served by the HTTP adapter on /metrics. A nil *Metrics is
valid and records nothing, so components can be built without instrumentation.
*/
package observability
