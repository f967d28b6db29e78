package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileArchive implements GameArchive using one JSON file per game
type FileArchive struct {
	gamesDir string
}

// NewFileArchive creates a file-based game archive
func NewFileArchive(gamesDir string) (*FileArchive, error) {
	// Create games directory if it doesn't exist
	if err := os.MkdirAll(gamesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create games directory: %w", err)
	}

	return &FileArchive{gamesDir: gamesDir}, nil
}

// Save persists a game to a JSON file
func (fa *FileArchive) Save(rec *GameRecord) error {
	if rec == nil {
		return fmt.Errorf("game record cannot be nil")
	}
	if !validGameID(rec.ID) {
		return ErrInvalidGameID
	}

	// Marshal to JSON with indentation for readability
	jsonData, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal game record: %w", err)
	}

	// Write to a temp file, then rename into place
	filePath := fa.getFilePath(rec.ID)
	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write game file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		return fmt.Errorf("failed to move game file into place: %w", err)
	}

	return nil
}

// Load retrieves a game from its JSON file
func (fa *FileArchive) Load(id string) (*GameRecord, error) {
	if !validGameID(id) {
		return nil, ErrInvalidGameID
	}
	filePath := fa.getFilePath(id)

	jsonData, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read game file: %w", err)
	}

	var rec GameRecord
	if err := json.Unmarshal(jsonData, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game record: %w", err)
	}

	return &rec, nil
}

// Delete removes a game file
func (fa *FileArchive) Delete(id string) error {
	if !validGameID(id) {
		return ErrInvalidGameID
	}

	err := os.Remove(fa.getFilePath(id))
	if os.IsNotExist(err) {
		return ErrGameNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete game file: %w", err)
	}

	return nil
}

// ListAll returns all stored game IDs in name order
func (fa *FileArchive) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fa.gamesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read games directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(ids)

	return ids, nil
}

// Exists checks if a game file exists
func (fa *FileArchive) Exists(id string) bool {
	if !validGameID(id) {
		return false
	}
	_, err := os.Stat(fa.getFilePath(id))
	return err == nil
}

func (fa *FileArchive) getFilePath(id string) string {
	return filepath.Join(fa.gamesDir, id+".json")
}
