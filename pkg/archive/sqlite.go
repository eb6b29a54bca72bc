package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // "sqlite3" driver (cgo)
	_ "modernc.org/sqlite"          // "sqlite" driver (pure Go)

	"oblige-hq/warden/pkg/model"
)

// SQLiteConfig contains configuration for the SQLite archive backend.
type SQLiteConfig struct {
	// Driver selects the registered database/sql driver: "sqlite3"
	// (github.com/mattn/go-sqlite3, cgo) or "sqlite" (modernc.org/sqlite,
	// pure Go). Default: "sqlite3".
	Driver string

	// Path is the database file path.
	Path string

	// MaxOpenConns limits open connections. Default: 10.
	MaxOpenConns int

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite archive configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Driver:       "sqlite3",
		Path:         "data/violations.db",
		MaxOpenConns: 10,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements Storage on SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the archive database and initializes the schema.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = "sqlite3"
	}

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, model.NewArchiveError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "archive.sqlite"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("violation archive initialized",
		"driver", config.Driver,
		"path", config.Path,
	)

	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return model.NewArchiveError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return model.NewArchiveError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return model.NewArchiveError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return model.NewArchiveError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return model.NewArchiveError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Store implements Storage.
func (s *SQLiteStorage) Store(ctx context.Context, v model.Violation) error {
	expected, err := json.Marshal(v.Expected)
	if err != nil {
		return model.NewArchiveError("sqlite", "store", err)
	}
	actual, err := json.Marshal(v.Actual)
	if err != nil {
		return model.NewArchiveError("sqlite", "store", err)
	}
	evidence, err := json.Marshal(v.Evidence)
	if err != nil {
		return model.NewArchiveError("sqlite", "store", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO violations
			(id, rule_id, event_type, subject, severity, detected_at,
			 expected, actual, evidence, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		v.ID, v.RuleID, v.EventType, v.Subject, string(v.Severity),
		v.DetectedAt, string(expected), string(actual), string(evidence),
		v.Summary,
	)
	if err != nil {
		return model.NewArchiveError("sqlite", "store", err)
	}
	return nil
}

// Query implements Storage.
func (s *SQLiteStorage) Query(ctx context.Context, q Query) ([]model.Violation, error) {
	where, args := buildWhere(q)

	stmt := `SELECT id, rule_id, event_type, subject, severity, detected_at,
	                expected, actual, evidence, summary
	         FROM violations` + where + ` ORDER BY detected_at ASC, id ASC`
	if q.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", q.Limit)
		if q.Offset > 0 {
			stmt += fmt.Sprintf(" OFFSET %d", q.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, model.NewArchiveError("sqlite", "query", err)
	}
	defer rows.Close()

	var out []model.Violation
	for rows.Next() {
		var v model.Violation
		var severity, expected, actual, evidence string
		if err := rows.Scan(&v.ID, &v.RuleID, &v.EventType, &v.Subject,
			&severity, &v.DetectedAt, &expected, &actual, &evidence,
			&v.Summary); err != nil {
			return nil, model.NewArchiveError("sqlite", "query", err)
		}
		v.Severity = model.Severity(severity)
		if err := json.Unmarshal([]byte(expected), &v.Expected); err != nil {
			return nil, model.NewArchiveError("sqlite", "query", err)
		}
		if err := json.Unmarshal([]byte(actual), &v.Actual); err != nil {
			return nil, model.NewArchiveError("sqlite", "query", err)
		}
		if err := json.Unmarshal([]byte(evidence), &v.Evidence); err != nil {
			return nil, model.NewArchiveError("sqlite", "query", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewArchiveError("sqlite", "query", err)
	}

	return out, nil
}

// Count implements Storage.
func (s *SQLiteStorage) Count(ctx context.Context, q Query) (int64, error) {
	where, args := buildWhere(q)

	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM violations`+where, args...).Scan(&count)
	if err != nil {
		return 0, model.NewArchiveError("sqlite", "count", err)
	}
	return count, nil
}

// Delete implements Storage.
func (s *SQLiteStorage) Delete(ctx context.Context, q Query) (int64, error) {
	where, args := buildWhere(q)

	res, err := s.db.ExecContext(ctx, `DELETE FROM violations`+where, args...)
	if err != nil {
		return 0, model.NewArchiveError("sqlite", "delete", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, model.NewArchiveError("sqlite", "delete", err)
	}
	return deleted, nil
}

// Close implements Storage.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// buildWhere renders the query filters as a WHERE clause.
func buildWhere(q Query) (string, []any) {
	var conds []string
	var args []any

	if q.ID != "" {
		conds = append(conds, "id = ?")
		args = append(args, q.ID)
	}
	if q.RuleID != "" {
		conds = append(conds, "rule_id = ?")
		args = append(args, q.RuleID)
	}
	if q.Subject != "" {
		conds = append(conds, "subject = ?")
		args = append(args, q.Subject)
	}
	if q.EventType != "" {
		conds = append(conds, "event_type = ?")
		args = append(args, q.EventType)
	}
	if q.Severity != "" {
		conds = append(conds, "severity = ?")
		args = append(args, string(q.Severity))
	}
	if q.Since != nil {
		conds = append(conds, "detected_at >= ?")
		args = append(args, model.Timestamp(*q.Since))
	}
	if q.Until != nil {
		conds = append(conds, "detected_at <= ?")
		args = append(args, model.Timestamp(*q.Until))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
