// Package care provides read-only access to the caregiver-facing data:
// assistidos (monitored persons), vínculos (caregiver-assistido links)
// and push destinations.
//
// These rows are owned by the external caregiver service; Amparo Core
// reads them for pairing authorisation, notification recipient
// resolution and the fall history endpoint, and never mutates them.
package care
