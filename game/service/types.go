package service

import (
	"time"

	"github.com/wricardo/tiles-server/game/engine"
	"github.com/wricardo/tiles-server/game/session"
	"github.com/wricardo/tiles-server/protocol"
)

// StatusInfo describes the server and the running game
type StatusInfo struct {
	session.Status
	Rules  *engine.Rules `json:"rules"`
	Uptime string        `json:"uptime"`
}

// HistoryOptions configures history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains a page of the running game's events
type HistoryResponse struct {
	GameID      string              `json:"game_id,omitempty"`
	Events      []protocol.Envelope `json:"events"`
	TotalEvents int                 `json:"total_events"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	TotalPages  int                 `json:"total_pages"`
	HasNext     bool                `json:"has_next"`
	HasPrevious bool                `json:"has_previous"`
}

// GameSummary describes an archived game
type GameSummary struct {
	ID        string    `json:"id"`
	Rules     string    `json:"rules,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Duration  string    `json:"duration"`
	Players   []int     `json:"players"`
	Winner    int       `json:"winner"`
	Events    int       `json:"events"`
}

// TileInfo describes one catalogue tile
type TileInfo struct {
	ID       int      `json:"id"`
	Pairs    [][2]int `json:"pairs"`
	Symmetry int      `json:"orientations"`
}

// ConfigInfo provides information about a rule preset
type ConfigInfo struct {
	Filename      string `json:"filename"`
	ConfigID      string `json:"config_id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	BoardWidth    int    `json:"board_width"`
	BoardHeight   int    `json:"board_height"`
	PlayerLimit   int    `json:"player_limit"`
	HandSize      int    `json:"hand_size"`
	TurnTimeoutMS int    `json:"turn_timeout_ms"`
}
