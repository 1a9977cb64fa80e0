/*
Package observability turns the engine's lifecycle hooks into Prometheus
metrics and structured log lines.

Hooks from several sources can be combined with Combine and passed to
lettergraph.WithLifecycleHooks.
*/
package observability
