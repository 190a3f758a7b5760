// Package database provides the SQLite persistence layer for Amparo Core.
//
// It wraps database/sql with WAL-mode configuration, connection pool
// settings suited to SQLite's single-writer model, and an embedded
// migration runner. Device and fall-event rows are owned by this service;
// assistido, vínculo and push-destination rows are written by the
// caregiver-facing collaborator and only read here.
package database
