package notify

import (
	"context"
	"time"

	"github.com/amparo-saude/amparo-core/internal/care"
)

// Alert is the delivery payload for one fall event, shaped for
// caregiver-facing channels rather than for storage.
type Alert struct {
	AssistidoID   string    `json:"assistido_id"`
	AssistidoName string    `json:"assistido_name,omitempty"`
	DeviceID      string    `json:"device_id"`
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	OccurredAt    time.Time `json:"occurred_at"`
	TotalAcc      float64   `json:"totalacc"`
}

// Channel delivers one alert to one caregiver's destination. An error
// or non-success ack counts the recipient as failed; the fanout never
// retries within a dispatch.
type Channel interface {
	Send(ctx context.Context, dest *care.PushDestination, alert Alert) error
}

// NopChannel accepts every alert without delivering anything. Used in
// development and as the default when no channel is configured.
type NopChannel struct{}

// Send implements Channel.
func (NopChannel) Send(context.Context, *care.PushDestination, Alert) error {
	return nil
}
