package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Database keeps the encoded library snapshot in a SQLite file. There is a
// single snapshot slot; each save replaces it inside one transaction so a
// reader never sees a half-written snapshot.
type Database struct {
	db *sql.DB

	loadStmt *sql.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create db dir: %w", ErrPersistenceUnavailable, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", ErrPersistenceUnavailable, err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.loadStmt != nil {
		d.loadStmt.Close()
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
            slot INTEGER PRIMARY KEY CHECK (slot = 1),
            revision TEXT NOT NULL,
            taken_at DATETIME NOT NULL,
            saved_at DATETIME NOT NULL,
            data BLOB NOT NULL
        );`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.loadStmt, err = d.db.Prepare(`SELECT data FROM snapshots WHERE slot=1`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Snapshot slot
// ---------------------------------------------------------------------------

// SaveSnapshot encodes s and replaces the stored snapshot with it.
func (d *Database) SaveSnapshot(s Snapshot) error {
	data, err := EncodeSnapshot(s)
	if err != nil {
		return err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrPersistenceUnavailable, err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
        INSERT INTO snapshots(slot,revision,taken_at,saved_at,data) VALUES(1,?,?,?,?)
        ON CONFLICT(slot) DO UPDATE SET
            revision=excluded.revision,
            taken_at=excluded.taken_at,
            saved_at=excluded.saved_at,
            data=excluded.data;`,
		s.Revision.String(), s.TakenAt, time.Now().UTC(), data)
	if err != nil {
		return fmt.Errorf("%w: write snapshot: %w", ErrPersistenceUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit snapshot: %w", ErrPersistenceUnavailable, err)
	}
	return nil
}

// LoadSnapshot returns the stored encoded snapshot, or nil if none was saved yet.
func (d *Database) LoadSnapshot() ([]byte, error) {
	var data []byte
	err := d.loadStmt.QueryRow().Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot: %w", ErrPersistenceUnavailable, err)
	}
	return data, nil
}
