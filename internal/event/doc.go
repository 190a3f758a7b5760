// Package event implements fall event ingestion, storage and retention.
//
// Ingestion is idempotent on the client-supplied event ID: a replayed
// event is acknowledged without a second row, a second fanout, or an
// error. Each device's history is capped by a per-device ring buffer
// enforced after every fresh insert.
package event
