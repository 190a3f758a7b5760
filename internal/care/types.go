package care

import "time"

// Assistido is a monitored person. Owned by the caregiver service;
// referenced, never mutated, by this core.
type Assistido struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BirthDate string    `json:"birth_date,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Phones    []string  `json:"phones,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Vinculo links a caregiver to an assistido with a role. It is the
// authorisation relationship for pairing and the recipient list for
// notification fanout.
type Vinculo struct {
	CaregiverID string `json:"caregiver_id"`
	AssistidoID string `json:"assistido_id"`
	Role        string `json:"role"`
}

// PushDestination is a caregiver's opaque delivery address, typically a
// push token registered by their phone app.
type PushDestination struct {
	CaregiverID string
	Token       string
	Name        string
}
