package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// Set names for the two persisted issue-number sets
const (
	setVoted = "voted"
	setOwned = "owned"
)

const metaInstallationID = "installation_id"

// DB is the device-local store of voted and owned issue numbers
type DB struct {
	*sql.DB
	path   string
	logger *slog.Logger
}

// New opens the store at dbPath and creates its schema. A file SQLite reports
// as corrupt or not a database is moved aside to dbPath+".corrupt" and
// replaced by an empty one. Any other failure, such as a lock held by another
// process, is returned and the file is left alone.
func New(dbPath string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := open(dbPath, logger)
	if err == nil {
		return db, nil
	}

	if dbPath == ":memory:" || !isCorrupt(err) {
		return nil, err
	}
	if _, statErr := os.Stat(dbPath); statErr != nil {
		return nil, err
	}

	logger.Warn("local store unreadable, starting empty", "path", dbPath, "error", err)
	if renameErr := os.Rename(dbPath, dbPath+".corrupt"); renameErr != nil {
		return nil, fmt.Errorf("failed to move corrupt database aside: %w", errors.Join(err, renameErr))
	}
	return open(dbPath, logger)
}

func isCorrupt(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrNotADB || sqliteErr.Code == sqlite3.ErrCorrupt
}

func open(dbPath string, logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps ":memory:" databases and write ordering consistent
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{DB: conn, path: dbPath, logger: logger}
	if err := db.Initialize(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Initialize creates the database schema if it doesn't exist
func (db *DB) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS issue_numbers (
		set_name TEXT NOT NULL,
		number INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (set_name, number)
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// HasVoted reports whether this device already voted on the issue
func (db *DB) HasVoted(number int) bool {
	return db.contains(setVoted, number)
}

// MarkVoted records a vote by this device. Marking twice is a no-op.
func (db *DB) MarkVoted(number int) error {
	return db.add(setVoted, number)
}

// OwnsIssue reports whether this device created the issue
func (db *DB) OwnsIssue(number int) bool {
	return db.contains(setOwned, number)
}

// MarkOwned records that this device created the issue. Marking twice is a no-op.
func (db *DB) MarkOwned(number int) error {
	return db.add(setOwned, number)
}

// AllOwned returns every issue number this device created
func (db *DB) AllOwned() map[int]struct{} {
	return db.members(setOwned)
}

// AllVoted returns every issue number this device voted on
func (db *DB) AllVoted() map[int]struct{} {
	return db.members(setVoted)
}

func (db *DB) add(set string, number int) error {
	query := `
	INSERT INTO issue_numbers (set_name, number)
	VALUES (?, ?)
	ON CONFLICT(set_name, number) DO NOTHING
	`

	_, err := db.Exec(query, set, number)
	if err != nil {
		return fmt.Errorf("failed to mark issue #%d as %s: %w", number, set, err)
	}

	return nil
}

// contains fails open: an unreadable store answers false
func (db *DB) contains(set string, number int) bool {
	var one int
	query := `SELECT 1 FROM issue_numbers WHERE set_name = ? AND number = ?`

	err := db.QueryRow(query, set, number).Scan(&one)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			db.logger.Warn("failed to read local store", "set", set, "number", number, "error", err)
		}
		return false
	}
	return true
}

// members fails open: unreadable rows are skipped and an unreadable table
// yields the empty set
func (db *DB) members(set string) map[int]struct{} {
	out := make(map[int]struct{})

	rows, err := db.Query(`SELECT number FROM issue_numbers WHERE set_name = ?`, set)
	if err != nil {
		db.logger.Warn("failed to read local store", "set", set, "error", err)
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var number int
		if err := rows.Scan(&number); err != nil {
			db.logger.Warn("skipping unreadable entry", "set", set, "error", err)
			continue
		}
		out[number] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		db.logger.Warn("failed to read local store", "set", set, "error", err)
		return make(map[int]struct{})
	}

	return out
}

// InstallationID returns the identifier of this installation, creating it on first use
func (db *DB) InstallationID() (string, error) {
	var id string
	err := db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, metaInstallationID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to get installation id: %w", err)
	}

	id = uuid.NewString()
	query := `
	INSERT INTO metadata (key, value)
	VALUES (?, ?)
	ON CONFLICT(key) DO NOTHING
	`
	if _, err := db.Exec(query, metaInstallationID, id); err != nil {
		return "", fmt.Errorf("failed to save installation id: %w", err)
	}

	// another writer may have won the insert
	if err := db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, metaInstallationID).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to get installation id: %w", err)
	}
	return id, nil
}

// Path returns the file backing the store
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
