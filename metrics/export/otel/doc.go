// Package otel bridges goMail engine metrics into OpenTelemetry.
//
// [New] registers observable instruments on a caller-supplied meter.
// [NewCollector] wires the same instruments to a private manual reader and
// serves them as JSON, which is what the admin listener mounts at
// /metrics/otel.
package otel
