package service

import (
	"context"

	"github.com/wricardo/tiles-server/game/engine"
	"github.com/wricardo/tiles-server/game/session"
	"github.com/wricardo/tiles-server/protocol"
)

// GameService defines the read-side operations exposed over HTTP and MCP
type GameService interface {
	// Live game
	Status(ctx context.Context) (*StatusInfo, error)
	History(ctx context.Context, opts HistoryOptions) (*HistoryResponse, error)
	Board(ctx context.Context) (*engine.BoardSnapshot, error)

	// Archive
	ListGames(ctx context.Context) ([]*GameSummary, error)
	GetGame(ctx context.Context, id string) (*session.GameRecord, error)

	// Rules
	Rules(ctx context.Context) *engine.Rules
	ListPresets(ctx context.Context) ([]*ConfigInfo, error)
	Tiles(ctx context.Context) []TileInfo
}

// Pools defines the pool operations the director drives
type Pools interface {
	WaitForQueue(ctx context.Context, n int) error
	Broadcast(msg protocol.Message, durable bool)

	FormLobby(limit int, pick func(n int) int) []int
	DisbandLobby() int
	Lobby() []*session.Player
	LobbyIDs() []int
	QueueIDs() []int
	LobbySize() int
	InLobby(id int) bool
	Current() (*session.Player, bool)

	BeginGame(gameID string) []int
	AnnounceTurn(id int) bool
	CommitMove(p *session.Player, move protocol.Message, apply func() bool) bool
	AdvanceTurn(id int) bool
	Eliminate(id int) bool
	EndGame() *session.GameRecord
}

// StatusSource provides snapshots of the live pools
type StatusSource interface {
	Status() session.Status
	History() []protocol.Message
}

// ConfigManager lists rule presets
type ConfigManager interface {
	ListConfigs() ([]*ConfigInfo, error)
}
