package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	// registers the "sqlite" driver
	_ "modernc.org/sqlite"
)

const createGamesTable = `
CREATE TABLE IF NOT EXISTS games (
	id         TEXT PRIMARY KEY,
	rules      TEXT NOT NULL DEFAULT '',
	started_at INTEGER NOT NULL,
	ended_at   INTEGER NOT NULL,
	winner     INTEGER NOT NULL,
	record     TEXT NOT NULL
)`

// SQLiteArchive implements GameArchive on a SQLite database
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive opens (and if needed creates) a SQLite game archive
func NewSQLiteArchive(path string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}
	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createGamesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create games table: %w", err)
	}

	return &SQLiteArchive{db: db}, nil
}

// Close closes the database
func (sa *SQLiteArchive) Close() error {
	return sa.db.Close()
}

// Save stores a finished game, replacing any record with the same ID
func (sa *SQLiteArchive) Save(rec *GameRecord) error {
	if rec == nil {
		return fmt.Errorf("game record cannot be nil")
	}
	if !validGameID(rec.ID) {
		return ErrInvalidGameID
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal game record: %w", err)
	}

	_, err = sa.db.Exec(
		`INSERT OR REPLACE INTO games (id, rules, started_at, ended_at, winner, record) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Rules, rec.StartedAt.UnixMilli(), rec.EndedAt.UnixMilli(), rec.Winner, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert game record: %w", err)
	}
	return nil
}

// Load retrieves a finished game by ID
func (sa *SQLiteArchive) Load(id string) (*GameRecord, error) {
	var data string
	err := sa.db.QueryRow(`SELECT record FROM games WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query game record: %w", err)
	}

	var rec GameRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game record: %w", err)
	}
	return &rec, nil
}

// Delete removes a game
func (sa *SQLiteArchive) Delete(id string) error {
	res, err := sa.db.Exec(`DELETE FROM games WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete game record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrGameNotFound
	}
	return nil
}

// ListAll returns all stored game IDs, oldest first
func (sa *SQLiteArchive) ListAll() ([]string, error) {
	rows, err := sa.db.Query(`SELECT id FROM games ORDER BY ended_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists checks if a game is stored
func (sa *SQLiteArchive) Exists(id string) bool {
	var one int
	err := sa.db.QueryRow(`SELECT 1 FROM games WHERE id = ?`, id).Scan(&one)
	return err == nil
}
