package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/amparo-saude/amparo-core/internal/event"
)

// ingestEventRequest is the payload for POST /device/event.
type ingestEventRequest struct {
	EventID    string  `json:"event_id"`
	EventType  string  `json:"event_type"`
	OccurredAt string  `json:"occurred_at"`
	EixoX      float64 `json:"eixo_x"`
	EixoY      float64 `json:"eixo_y"`
	EixoZ      float64 `json:"eixo_z"`
	TotalAcc   float64 `json:"totalacc"`
	RawPayload string  `json:"raw_payload"`
}

// handleIngestEvent accepts a fall event from the authenticated device.
func (s *Server) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	var req ingestEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	input := event.IngestInput{
		EventID:    req.EventID,
		EventType:  req.EventType,
		EixoX:      req.EixoX,
		EixoY:      req.EixoY,
		EixoZ:      req.EixoZ,
		TotalAcc:   req.TotalAcc,
		RawPayload: req.RawPayload,
	}
	if input.EventType == "" {
		input.EventType = "queda"
	}
	if req.OccurredAt != "" {
		at, err := time.Parse(time.RFC3339, req.OccurredAt)
		if err != nil {
			writeBadRequest(w, "occurred_at must be RFC3339")
			return
		}
		input.OccurredAt = at
	}

	d := deviceFromContext(r.Context())
	res, err := s.pipeline.Ingest(r.Context(), d, input)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyExisted {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"accepted":        res.Accepted,
		"already_existed": res.AlreadyExisted,
		"event_id":        res.Event.ID,
		"notifications":   res.Notifications,
	})
}

// handleHeartbeat refreshes the authenticated device's liveness.
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	d := deviceFromContext(r.Context())
	if err := s.pipeline.Heartbeat(r.Context(), d); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
