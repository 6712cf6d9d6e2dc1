// Package telemetry carries the terminal-state events emitted by the
// orchestrator to external sinks.
//
// An Event is an append-only record: sinks serialize or count it but never
// interpret it. Sinks compose with Multi:
//
//	reg := prometheus.NewRegistry()
//	prom, _ := telemetry.NewPrometheusSink(reg)
//	sink := telemetry.Multi(telemetry.NewLogSink(log), prom)
package telemetry
