// Package device implements the device identity half of Amparo Core:
// registration with one-way hashed secrets, secret rotation, short
// pairing codes, and bearer-credential authentication.
//
// Secrets are stored as Argon2id hashes only. Authentication is therefore
// a bounded linear probe over candidate hashes rather than an indexed
// lookup; the CredentialResolver interface isolates that cost so a
// prefix-indexed scheme can replace it without touching callers.
package device
