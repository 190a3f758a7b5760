// Package telemetry writes fire-and-forget measurement points to
// InfluxDB.
//
// Points are batched and flushed asynchronously by the client library;
// a slow or unreachable InfluxDB never blocks ingestion. Telemetry is
// optional and disabled by default.
package telemetry
