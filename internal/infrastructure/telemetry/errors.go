package telemetry

import "errors"

var (
	// ErrDisabled is returned by Connect when telemetry is disabled in
	// config.
	ErrDisabled = errors.New("telemetry: disabled in configuration")

	// ErrConnectionFailed is returned when InfluxDB is unreachable at
	// startup.
	ErrConnectionFailed = errors.New("telemetry: connection failed")
)
