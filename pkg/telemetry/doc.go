// Package telemetry provides observability hooks for the reactor
// engine: Prometheus metrics and OpenTelemetry tracing of propagation
// passes.
//
// Both are reactor.Monitor implementations, installed with
// reactor.SetMonitor at startup:
//
//	reactor.SetMonitor(telemetry.NewMetrics())
//
// or combined:
//
//	reactor.SetMonitor(telemetry.Multi(
//	    telemetry.NewMetrics(),
//	    telemetry.NewTracer(),
//	))
//
// Monitor calls are strictly paired and single-threaded per graph, so
// neither implementation synchronizes around per-pass state.
package telemetry
