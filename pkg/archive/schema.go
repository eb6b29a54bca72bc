package archive

// SchemaVersion is the current archive schema version.
const SchemaVersion = 1

// Schema creates the violations table and its lookup indexes. Timestamps
// are stored as RFC3339 UTC strings, which order lexicographically.
const Schema = `
CREATE TABLE IF NOT EXISTS violations (
    id          TEXT PRIMARY KEY,
    rule_id     TEXT NOT NULL,
    event_type  TEXT NOT NULL,
    subject     TEXT NOT NULL,
    severity    TEXT NOT NULL,
    detected_at TEXT NOT NULL,
    expected    TEXT NOT NULL,
    actual      TEXT NOT NULL,
    evidence    TEXT NOT NULL,
    summary     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_violations_rule_id     ON violations(rule_id);
CREATE INDEX IF NOT EXISTS idx_violations_subject     ON violations(subject);
CREATE INDEX IF NOT EXISTS idx_violations_event_type  ON violations(event_type);
CREATE INDEX IF NOT EXISTS idx_violations_detected_at ON violations(detected_at);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

// InsertSchemaVersion records the schema version, ignoring re-runs.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?);`

// GetSchemaVersion reads the recorded schema version.
const GetSchemaVersion = `SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;`
