// Package api provides the HTTP REST API for Amparo Core.
//
// It exposes the device-facing surface (registration, fall event
// ingestion, heartbeats) and the caregiver-facing pairing and history
// endpoints. Devices authenticate with their provisioned secret;
// caregivers with a JWT issued by the caregiver-facing service.
//
// The server follows the same lifecycle pattern as other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package api
