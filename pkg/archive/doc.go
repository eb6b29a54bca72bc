// Package archive is a queryable mirror of the violation ledger.
//
// The ledger stays the sole source of truth; the archive exists so
// violation history can be filtered by rule, subject, event type, severity
// and time range without scanning the JSONL file. Backends: SQLite (either
// the cgo "sqlite3" driver or the pure-Go "sqlite" driver) and in-memory.
// A cron-scheduled pruner enforces retention on the mirror only.
package archive
