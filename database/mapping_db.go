package database

import (
	"comic-bridge/models"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // Import the SQLite3 driver
)

// MappingDB holds the connection to the comic_id -> thread_id mapping table.
type MappingDB struct {
	db *sql.DB
}

// InitMappingDB opens (and creates if necessary) the mapping database at the
// given path and ensures the mapping table exists.
func InitMappingDB(dbPath string) (*MappingDB, error) {
	// Ensure the directory for the database file exists.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open the SQLite database. It will be created if it doesn't exist.
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Ping the database to verify the connection.
	if err = db.Ping(); err != nil {
		db.Close() // Close the connection if ping fails
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createMappingsTable(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create thread_mappings table: %w", err)
	}

	log.Println("Successfully connected to the mapping database at", dbPath)
	return &MappingDB{db: db}, nil
}

// createMappingsTable creates the 'thread_mappings' table if it doesn't exist.
func createMappingsTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS thread_mappings (
        comic_id TEXT PRIMARY KEY,
        thread_id TEXT,
        title TEXT,
        timestamp INTEGER
    );`
	_, err := db.Exec(query)
	return err
}

// Lookup returns the thread ID mapped to a comic ID. The second return value
// is false when no row exists for the comic ID.
func (m *MappingDB) Lookup(comicID string) (string, bool, error) {
	var threadID string
	err := m.db.QueryRow("SELECT thread_id FROM thread_mappings WHERE comic_id = ?", comicID).Scan(&threadID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query mapping for comic %s: %w", comicID, err)
	}
	return threadID, true, nil
}

// Upsert inserts or replaces the mapping row for a comic ID. A replaced row
// is overwritten atomically; readers never observe a partial write.
func (m *MappingDB) Upsert(comicID, threadID, title string) error {
	query := `INSERT OR REPLACE INTO thread_mappings (comic_id, thread_id, title, timestamp) VALUES (?, ?, ?, ?)`
	stmt, err := m.db.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for upserting mapping: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(comicID, threadID, title, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to execute statement for upserting mapping %s: %w", comicID, err)
	}

	return nil
}

// All returns every mapping row, ordered by comic ID. Used by the audit job.
func (m *MappingDB) All() ([]models.ThreadMapping, error) {
	rows, err := m.db.Query("SELECT comic_id, thread_id, title, timestamp FROM thread_mappings ORDER BY comic_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer rows.Close()

	var mappings []models.ThreadMapping
	for rows.Next() {
		var mp models.ThreadMapping
		if err := rows.Scan(&mp.ComicID, &mp.ThreadID, &mp.Title, &mp.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan mapping row: %w", err)
		}
		mappings = append(mappings, mp)
	}
	return mappings, rows.Err()
}

// Close closes the underlying database connection.
func (m *MappingDB) Close() error {
	return m.db.Close()
}
