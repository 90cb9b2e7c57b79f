// Package blackbox loads Betaflight blackbox CSV exports into raw
// telemetry samples. Timestamps are microseconds; empty cells become NaN.
package blackbox
