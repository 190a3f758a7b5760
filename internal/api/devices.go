package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// registerDeviceRequest is the payload for POST /device/register.
type registerDeviceRequest struct {
	Serial string `json:"serial"`
	Name   string `json:"name"`
}

// handleRegisterDevice provisions a device credential for the given
// serial. Re-registering a known serial rotates its secret.
func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	res, err := s.registry.Register(r.Context(), req.Serial, req.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Rotated {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"device_id":  res.Device.ID,
		"secret":     res.Secret,
		"serial":     res.Device.Serial,
		"short_code": res.Device.ShortCode,
	})
}

// pairDeviceRequest is the payload for POST /device/pair.
type pairDeviceRequest struct {
	Serial      string `json:"serial"`
	ShortCode   string `json:"short_code"`
	AssistidoID string `json:"assistido_id"`
	PairCode    string `json:"pair_code"`
}

func (r pairDeviceRequest) lookup() string {
	if r.ShortCode != "" {
		return r.ShortCode
	}
	return r.Serial
}

// handlePairDevice links a device to an assistido on behalf of the
// authenticated caregiver.
func (s *Server) handlePairDevice(w http.ResponseWriter, r *http.Request) {
	var req pairDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.lookup() == "" {
		writeBadRequest(w, "serial or short_code is required")
		return
	}
	if req.AssistidoID == "" {
		writeBadRequest(w, "assistido_id is required")
		return
	}

	caregiverID := caregiverFromContext(r.Context())
	d, err := s.coordinator.Pair(r.Context(), caregiverID, req.lookup(), req.AssistidoID, req.PairCode)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"device": d})
}

// unpairDeviceRequest is the payload for POST /device/unpair.
type unpairDeviceRequest struct {
	Serial    string `json:"serial"`
	ShortCode string `json:"short_code"`
}

// handleUnpairDevice removes a device's pairing on behalf of the
// authenticated caregiver.
func (s *Server) handleUnpairDevice(w http.ResponseWriter, r *http.Request) {
	var req unpairDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	lookup := req.ShortCode
	if lookup == "" {
		lookup = req.Serial
	}
	if lookup == "" {
		writeBadRequest(w, "serial or short_code is required")
		return
	}

	caregiverID := caregiverFromContext(r.Context())
	d, err := s.coordinator.Unpair(r.Context(), caregiverID, lookup)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"device": d})
}

// pairCodeRequest is the payload for POST /device/pair-code.
type pairCodeRequest struct {
	Serial string `json:"serial"`
}

// handleIssuePairCode issues a fresh one-time pair code for the device.
// The code is shown once to the caregiver doing the installation.
func (s *Server) handleIssuePairCode(w http.ResponseWriter, r *http.Request) {
	var req pairCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Serial == "" {
		writeBadRequest(w, "serial is required")
		return
	}

	ttl := time.Duration(s.pairCfg.PairCodeTTL) * time.Second
	code, err := s.registry.IssuePairCode(r.Context(), req.Serial, ttl)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pair_code":  code.Code,
		"expires_at": code.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// handleDeviceStatus returns the authenticated device's own snapshot.
func (s *Server) handleDeviceStatus(w http.ResponseWriter, r *http.Request) {
	d := deviceFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"device": d})
}
