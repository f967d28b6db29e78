package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wricardo/tiles-server/game/engine"
	"github.com/wricardo/tiles-server/game/session"
	"github.com/wricardo/tiles-server/protocol"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	source  StatusSource
	archive session.GameArchive
	configs ConfigManager
	rules   *engine.Rules
	started time.Time
}

// NewGameService creates a new game service instance. archive and configs
// may be nil.
func NewGameService(source StatusSource, rules *engine.Rules, archive session.GameArchive, configs ConfigManager) GameService {
	return &gameServiceImpl{
		source:  source,
		archive: archive,
		configs: configs,
		rules:   rules,
		started: time.Now(),
	}
}

// Status returns the pools, the running game and the active rules
func (s *gameServiceImpl) Status(ctx context.Context) (*StatusInfo, error) {
	return &StatusInfo{
		Status: s.source.Status(),
		Rules:  s.rules,
		Uptime: time.Since(s.started).Round(time.Second).String(),
	}, nil
}

// History returns a page of the running game's durable events
func (s *gameServiceImpl) History(ctx context.Context, opts HistoryOptions) (*HistoryResponse, error) {
	events := s.source.History()
	gameID := s.source.Status().GameID

	// Validate and set defaults
	if opts.Limit <= 0 {
		opts.Limit = defaultHistoryLimit
	}
	if opts.Limit > maxHistoryLimit {
		opts.Limit = maxHistoryLimit
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Order != "desc" {
		opts.Order = "asc"
	}

	if opts.Order == "desc" {
		reversed := make([]protocol.Message, len(events))
		for i, e := range events {
			reversed[len(events)-1-i] = e
		}
		events = reversed
	}

	total := len(events)
	totalPages := (total + opts.Limit - 1) / opts.Limit
	start := (opts.Page - 1) * opts.Limit
	end := min(start+opts.Limit, total)

	var page []protocol.Message
	if start < total {
		page = events[start:end]
	}

	envelopes, err := protocol.ToEnvelopes(page)
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}

	return &HistoryResponse{
		GameID:      gameID,
		Events:      envelopes,
		TotalEvents: total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// Board rebuilds the running game's board from its history
func (s *gameServiceImpl) Board(ctx context.Context) (*engine.BoardSnapshot, error) {
	mirror := NewMirror(s.rules.BoardWidth, s.rules.BoardHeight)
	mirror.ApplyAll(s.source.History())
	snapshot := mirror.Board().Snapshot()
	return &snapshot, nil
}

// ListGames summarizes every archived game, newest first
func (s *gameServiceImpl) ListGames(ctx context.Context) ([]*GameSummary, error) {
	if s.archive == nil {
		return []*GameSummary{}, nil
	}

	ids, err := s.archive.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	summaries := make([]*GameSummary, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := s.archive.Load(id)
		if err != nil {
			continue
		}
		summaries = append(summaries, &GameSummary{
			ID:        rec.ID,
			Rules:     rec.Rules,
			StartedAt: rec.StartedAt,
			EndedAt:   rec.EndedAt,
			Duration:  rec.Duration().Round(time.Second).String(),
			Players:   rec.TurnOrder,
			Winner:    rec.Winner,
			Events:    len(rec.Events),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].EndedAt.After(summaries[j].EndedAt)
	})
	return summaries, nil
}

// GetGame loads one archived game
func (s *gameServiceImpl) GetGame(ctx context.Context, id string) (*session.GameRecord, error) {
	if s.archive == nil {
		return nil, session.ErrGameNotFound
	}
	return s.archive.Load(id)
}

// Rules returns the active rule set
func (s *gameServiceImpl) Rules(ctx context.Context) *engine.Rules {
	return s.rules
}

// ListPresets lists the available rule presets
func (s *gameServiceImpl) ListPresets(ctx context.Context) ([]*ConfigInfo, error) {
	if s.configs == nil {
		return []*ConfigInfo{}, nil
	}
	return s.configs.ListConfigs()
}

// Tiles describes the tile catalogue
func (s *gameServiceImpl) Tiles(ctx context.Context) []TileInfo {
	tiles := engine.Tiles()
	out := make([]TileInfo, len(tiles))
	for id, tile := range tiles {
		out[id] = TileInfo{ID: id, Pairs: tile.Pairs(), Symmetry: tile.Symmetry()}
	}
	return out
}
