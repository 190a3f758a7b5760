package event

import "context"

// RetentionManager keeps each device's stored history bounded to the
// most recent maxEvents rows.
type RetentionManager struct {
	events Repository
	keep   int
	log    Logger
}

// NewRetentionManager creates a retention manager keeping the given
// number of events per device.
func NewRetentionManager(events Repository, keep int, log Logger) *RetentionManager {
	return &RetentionManager{events: events, keep: keep, log: log}
}

// Enforce evicts everything beyond the newest keep rows for the device.
// Eviction is best-effort housekeeping; errors are logged and returned
// but callers on the ingestion path must not surface them.
func (m *RetentionManager) Enforce(ctx context.Context, deviceID string) error {
	deleted, err := m.events.EvictOldest(ctx, deviceID, m.keep)
	if err != nil {
		m.log.Warn("retention enforcement failed", "device_id", deviceID, "error", err)
		return err
	}
	if deleted > 0 {
		m.log.Info("evicted fall events", "device_id", deviceID, "deleted", deleted, "keep", m.keep)
	}
	return nil
}
