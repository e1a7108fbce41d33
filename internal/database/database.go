package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// RemovalDB manages the SQLite database for removal history
type RemovalDB struct {
	db  *sql.DB
	now func() time.Time
}

// RemovalRecord represents a single decision taken during a walk
type RemovalRecord struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action"`
	Path         string    `json:"path"`
	FileName     string    `json:"file_name"`
	ObjectType   string    `json:"object_type"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// NewRemovalDB creates a new database connection and initializes schema
func NewRemovalDB(dbPath string) (*RemovalDB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Ping alone does not create the file
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	rdb := &RemovalDB{db: db, now: time.Now}
	if err = rdb.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return rdb, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *RemovalDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS removals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT,
		object_type TEXT,
		error_message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_timestamp ON removals(timestamp);
	CREATE INDEX IF NOT EXISTS idx_action ON removals(action);
	CREATE INDEX IF NOT EXISTS idx_path ON removals(path);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordRemoval inserts one walk decision into the database
func (d *RemovalDB) RecordRemoval(action, path, object, errMsg string) error {
	var errVal sql.NullString
	if errMsg != "" {
		errVal = sql.NullString{String: errMsg, Valid: true}
	}

	_, err := d.db.Exec(`
	INSERT INTO removals (timestamp, action, path, file_name, object_type, error_message)
	VALUES (?, ?, ?, ?, ?, ?)
	`,
		d.now().UTC(),
		action,
		path,
		filepath.Base(path),
		object,
		errVal,
	)
	return err
}

// Close closes the database connection
func (d *RemovalDB) Close() error {
	return d.db.Close()
}

// Vacuum optimizes the database (run periodically)
func (d *RemovalDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}
