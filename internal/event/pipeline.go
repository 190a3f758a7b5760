package event

import (
	"context"
	"errors"
	"time"

	"github.com/amparo-saude/amparo-core/internal/device"
)

// Logger is the minimal logging interface the pipeline needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Dispatcher delivers an ingested fall event to the caregivers of the
// assistido. Implemented by the notification fanout.
type Dispatcher interface {
	Dispatch(ctx context.Context, assistidoID string, e *FallEvent) Notifications
}

// TelemetryWriter receives fire-and-forget measurement points for
// ingested events and heartbeats.
type TelemetryWriter interface {
	WriteFallEvent(e *FallEvent)
	WriteHeartbeat(deviceID string, at time.Time)
}

// Pipeline is the ingestion path for device-submitted fall events.
type Pipeline struct {
	events      Repository
	devices     device.Repository
	retention   *RetentionManager
	dispatch    Dispatcher
	telemetry   TelemetryWriter
	postTimeout time.Duration
	log         Logger
}

// PipelineConfig carries the pipeline's collaborators. Dispatch and
// Telemetry are optional.
type PipelineConfig struct {
	Events      Repository
	Devices     device.Repository
	Retention   *RetentionManager
	Dispatch    Dispatcher
	Telemetry   TelemetryWriter
	PostTimeout time.Duration
	Logger      Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.PostTimeout <= 0 {
		cfg.PostTimeout = 30 * time.Second
	}
	return &Pipeline{
		events:      cfg.Events,
		devices:     cfg.Devices,
		retention:   cfg.Retention,
		dispatch:    cfg.Dispatch,
		telemetry:   cfg.Telemetry,
		postTimeout: cfg.PostTimeout,
		log:         cfg.Logger,
	}
}

// Ingest stores a fall event from an authenticated device and runs the
// post-insert bookkeeping (retention, fanout, telemetry).
//
// A replayed client event ID is acknowledged idempotently: the stored
// event is returned with AlreadyExisted set and no second insert or
// fanout happens. The device's last_seen is refreshed on every call,
// dedup hit or not.
func (p *Pipeline) Ingest(ctx context.Context, d *device.Device, input IngestInput) (*Result, error) {
	now := time.Now().UTC().Truncate(time.Second)

	if err := p.devices.TouchLastSeen(ctx, d.ID, now); err != nil {
		p.log.Warn("refreshing last_seen failed", "device_id", d.ID, "error", err)
	}

	if !d.Paired() {
		return nil, ErrDeviceUnpaired
	}

	if input.EventID != "" {
		existing, err := p.events.GetByEventID(ctx, input.EventID)
		if err == nil {
			return &Result{Accepted: true, AlreadyExisted: true, Event: existing}, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	e := &FallEvent{
		DispositivoID: d.ID,
		AssistidoID:   *d.AssistidoID,
		EventType:     input.EventType,
		OccurredAt:    input.OccurredAt,
		EixoX:         input.EixoX,
		EixoY:         input.EixoY,
		EixoZ:         input.EixoZ,
		TotalAcc:      input.TotalAcc,
		RawPayload:    input.RawPayload,
		CreatedAt:     now,
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = now
	}
	if input.EventID != "" {
		id := input.EventID
		e.EventID = &id
	}

	if err := p.events.Insert(ctx, e); err != nil {
		if errors.Is(err, ErrDuplicateEventID) {
			// A concurrent replay won the insert between our lookup and
			// this write. Serve the stored row.
			existing, lookupErr := p.events.GetByEventID(ctx, input.EventID)
			if lookupErr != nil {
				return nil, lookupErr
			}
			return &Result{Accepted: true, AlreadyExisted: true, Event: existing}, nil
		}
		return nil, err
	}

	p.log.Info("fall event ingested",
		"event_id", e.ID,
		"device_id", d.ID,
		"assistido_id", e.AssistidoID,
		"event_type", e.EventType,
	)

	// Bookkeeping outlives the request: a device dropping its connection
	// mid-response must not abort retention or half the fanout. The
	// detached context is still bounded by its own deadline.
	postCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.postTimeout)
	defer cancel()

	if p.retention != nil {
		_ = p.retention.Enforce(postCtx, d.ID) //nolint:errcheck // logged by the manager
	}

	result := &Result{Accepted: true, Event: e}
	if p.dispatch != nil {
		result.Notifications = p.dispatch.Dispatch(postCtx, e.AssistidoID, e)
	}
	if p.telemetry != nil {
		p.telemetry.WriteFallEvent(e)
	}

	return result, nil
}

// Heartbeat refreshes the device's liveness timestamp. Pairing is not
// required; an unpaired device still proves it is alive.
func (p *Pipeline) Heartbeat(ctx context.Context, d *device.Device) error {
	now := time.Now().UTC().Truncate(time.Second)
	if err := p.devices.TouchLastSeen(ctx, d.ID, now); err != nil {
		return err
	}
	if p.telemetry != nil {
		p.telemetry.WriteHeartbeat(d.ID, now)
	}
	return nil
}
