package event

import "time"

// FallEvent is a single detection reported by a device, denormalized
// with the assistido it concerned at ingestion time so history survives
// later unpairing.
type FallEvent struct {
	ID            string    `json:"id"`
	EventID       *string   `json:"event_id,omitempty"`
	DispositivoID string    `json:"dispositivo_id"`
	AssistidoID   string    `json:"assistido_id"`
	EventType     string    `json:"event_type"`
	OccurredAt    time.Time `json:"occurred_at"`
	EixoX         float64   `json:"eixo_x"`
	EixoY         float64   `json:"eixo_y"`
	EixoZ         float64   `json:"eixo_z"`
	TotalAcc      float64   `json:"totalacc"`
	RawPayload    string    `json:"raw_payload,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// IngestInput is the device-submitted portion of a fall event. EventID
// is the optional idempotency key; OccurredAt defaults to ingestion
// time when zero.
type IngestInput struct {
	EventID    string
	EventType  string
	OccurredAt time.Time
	EixoX      float64
	EixoY      float64
	EixoZ      float64
	TotalAcc   float64
	RawPayload string
}

// Notifications summarises fanout delivery for one ingested event.
// Failures here are data for the caller, never ingestion errors.
type Notifications struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Result is the outcome of one ingestion call.
type Result struct {
	Accepted       bool
	AlreadyExisted bool
	Event          *FallEvent
	Notifications  Notifications
}
