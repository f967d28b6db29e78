package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wricardo/tiles-server/protocol"
)

var (
	ErrGameNotFound  = errors.New("game not found")
	ErrInvalidGameID = errors.New("invalid game ID")
)

// GameArchive defines the interface for storing finished games
type GameArchive interface {
	// Save stores a finished game
	Save(rec *GameRecord) error

	// Load retrieves a finished game by ID
	Load(id string) (*GameRecord, error)

	// Delete removes a game from storage
	Delete(id string) error

	// ListAll returns all stored game IDs
	ListAll() ([]string, error)

	// Exists checks if a game exists in storage
	Exists(id string) bool
}

// GameRecord is a finished game and its event log
type GameRecord struct {
	ID        string
	Rules     string
	StartedAt time.Time
	EndedAt   time.Time
	TurnOrder []int
	Winner    int
	Events    []protocol.Message
}

type persistedGameData struct {
	ID        string              `json:"id"`
	Rules     string              `json:"rules,omitempty"`
	StartedAt time.Time           `json:"started_at"`
	EndedAt   time.Time           `json:"ended_at"`
	TurnOrder []int               `json:"turn_order"`
	Winner    int                 `json:"winner"`
	Events    []protocol.Envelope `json:"events"`
}

// MarshalJSON encodes the record with its events as envelopes
func (r *GameRecord) MarshalJSON() ([]byte, error) {
	events, err := protocol.ToEnvelopes(r.Events)
	if err != nil {
		return nil, err
	}
	return json.Marshal(persistedGameData{
		ID:        r.ID,
		Rules:     r.Rules,
		StartedAt: r.StartedAt,
		EndedAt:   r.EndedAt,
		TurnOrder: r.TurnOrder,
		Winner:    r.Winner,
		Events:    events,
	})
}

// UnmarshalJSON decodes a record written by MarshalJSON
func (r *GameRecord) UnmarshalJSON(data []byte) error {
	var p persistedGameData
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	events, err := protocol.FromEnvelopes(p.Events)
	if err != nil {
		return fmt.Errorf("failed to decode events: %w", err)
	}
	*r = GameRecord{
		ID:        p.ID,
		Rules:     p.Rules,
		StartedAt: p.StartedAt,
		EndedAt:   p.EndedAt,
		TurnOrder: p.TurnOrder,
		Winner:    p.Winner,
		Events:    events,
	}
	return nil
}

// Duration returns how long the game ran
func (r *GameRecord) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// OpenArchive opens the archive named by location. An empty location means
// no archive; "sqlite:<path>" opens a SQLite database; anything else is a
// directory of JSON files.
func OpenArchive(location string) (GameArchive, error) {
	switch {
	case location == "":
		return nil, nil
	case strings.HasPrefix(location, "sqlite:"):
		archive, err := NewSQLiteArchive(strings.TrimPrefix(location, "sqlite:"))
		if err != nil {
			return nil, err
		}
		return archive, nil
	default:
		archive, err := NewFileArchive(location)
		if err != nil {
			return nil, err
		}
		return archive, nil
	}
}

func validGameID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
