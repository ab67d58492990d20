// Package journal keeps the persistent history of flash operations in
// a SQLite database.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
	path string
}

// New opens or creates the journal database at the given path.
func New(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to configure journal: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

func (d *DB) migrate() error {
	_, err := d.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	var version int
	err = d.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return err
	}

	migrations := []string{
		migrationV1,
	}

	for i, migration := range migrations {
		v := i + 1
		if v <= version {
			continue
		}

		tx, err := d.conn.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migration); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d failed: %w", v, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", v); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

const migrationV1 = `
-- One row per flash attempt; the state is updated when the operation ends
CREATE TABLE IF NOT EXISTS operations (
    id TEXT PRIMARY KEY,
    device_path TEXT NOT NULL,
    identity TEXT,
    image_path TEXT NOT NULL,
    image_size INTEGER,
    checksum TEXT,
    state TEXT NOT NULL,
    detail TEXT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_operations_started ON operations(started_at);
CREATE INDEX IF NOT EXISTS idx_operations_identity ON operations(identity);
`

// Operation states
const (
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Operation is one recorded flash attempt.
type Operation struct {
	ID         string
	DevicePath string
	Identity   string
	ImagePath  string
	ImageSize  int64
	Checksum   string
	State      string
	Detail     string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Begin records the start of a flash operation and returns its ID.
func (d *DB) Begin(devicePath, identity, imagePath string, imageSize int64) (string, error) {
	id := uuid.NewString()
	_, err := d.conn.Exec(`
		INSERT INTO operations (id, device_path, identity, image_path, image_size, state, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, devicePath, nullString(identity), imagePath, imageSize, StateRunning, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to record operation start: %w", err)
	}
	return id, nil
}

// Finish marks an operation's outcome.
func (d *DB) Finish(id, state, checksum, detail string) error {
	_, err := d.conn.Exec(`
		UPDATE operations SET state = ?, checksum = ?, detail = ?, finished_at = ? WHERE id = ?
	`, state, nullString(checksum), nullString(detail), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to record operation outcome: %w", err)
	}
	return nil
}

// List returns the most recent operations, newest first.
func (d *DB) List(limit int) ([]*Operation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.conn.Query(`
		SELECT id, device_path, identity, image_path, image_size, checksum, state, detail, started_at, finished_at
		FROM operations ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// ListByIdentity returns operations targeting one device identity.
func (d *DB) ListByIdentity(identity string, limit int) ([]*Operation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.conn.Query(`
		SELECT id, device_path, identity, image_path, image_size, checksum, state, detail, started_at, finished_at
		FROM operations WHERE identity = ? ORDER BY started_at DESC LIMIT ?
	`, identity, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations by identity: %w", err)
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func scanOperation(rows *sql.Rows) (*Operation, error) {
	var op Operation
	var identity, chksum, detail sql.NullString
	var imageSize sql.NullInt64
	var finished sql.NullTime

	err := rows.Scan(&op.ID, &op.DevicePath, &identity, &op.ImagePath, &imageSize,
		&chksum, &op.State, &detail, &op.StartedAt, &finished)
	if err != nil {
		return nil, fmt.Errorf("failed to scan operation: %w", err)
	}

	op.Identity = identity.String
	op.ImageSize = imageSize.Int64
	op.Checksum = chksum.String
	op.Detail = detail.String
	if finished.Valid {
		t := finished.Time
		op.FinishedAt = &t
	}
	return &op, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
