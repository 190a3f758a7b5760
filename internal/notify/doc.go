// Package notify delivers fall alerts to the caregivers of an
// assistido.
//
// Delivery is best-effort fanout: every linked caregiver gets an
// independent attempt through a bounded worker pool, one slow or broken
// destination never blocks the rest, and the aggregate outcome is
// returned as data rather than an error.
package notify
