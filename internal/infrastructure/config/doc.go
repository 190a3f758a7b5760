// Package config loads and validates the Amparo Core configuration.
//
// Configuration lives in a single YAML file. Secrets (JWT signing key,
// broker password, telemetry token, FCM credentials) can be supplied via
// environment variables so the file itself can be committed without them.
package config
