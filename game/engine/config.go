package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Rules represents the tunable parameters of a game, loaded from JSON
type Rules struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	BoardWidth       int    `json:"board_width"`
	BoardHeight      int    `json:"board_height"`
	PlayerLimit      int    `json:"player_limit"`
	HandSize         int    `json:"hand_size"`
	TurnTimeoutMS    int    `json:"turn_timeout_ms"`
	CountdownDelayMS int    `json:"countdown_delay_ms"`
}

// DefaultRules returns the classic rule set
func DefaultRules() *Rules {
	return &Rules{
		Name:             "classic",
		Description:      "Classic 5x5 board, up to four players, ten second turns",
		BoardWidth:       DefaultBoardWidth,
		BoardHeight:      DefaultBoardHeight,
		PlayerLimit:      DefaultPlayerLimit,
		HandSize:         DefaultHandSize,
		TurnTimeoutMS:    10000,
		CountdownDelayMS: 5000,
	}
}

// TurnTimeout returns the per-turn deadline
func (r *Rules) TurnTimeout() time.Duration {
	return time.Duration(r.TurnTimeoutMS) * time.Millisecond
}

// CountdownDelay returns the pause between the countdown and lobby selection
func (r *Rules) CountdownDelay() time.Duration {
	return time.Duration(r.CountdownDelayMS) * time.Millisecond
}

// Clone returns a copy of the rules
func (r *Rules) Clone() *Rules {
	c := *r
	return &c
}

// ValidateRules validates a rule set for correctness and playability
func ValidateRules(rules *Rules) error {
	if rules == nil {
		return fmt.Errorf("config validation: rules are required")
	}
	if rules.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}

	if rules.BoardWidth < MinBoardSize || rules.BoardWidth > MaxBoardSize {
		return fmt.Errorf("config validation: board_width must be between %d and %d, got %d", MinBoardSize, MaxBoardSize, rules.BoardWidth)
	}
	if rules.BoardHeight < MinBoardSize || rules.BoardHeight > MaxBoardSize {
		return fmt.Errorf("config validation: board_height must be between %d and %d, got %d", MinBoardSize, MaxBoardSize, rules.BoardHeight)
	}

	if rules.PlayerLimit < MinPlayerLimit || rules.PlayerLimit > MaxPlayerLimit {
		return fmt.Errorf("config validation: player_limit must be between %d and %d, got %d", MinPlayerLimit, MaxPlayerLimit, rules.PlayerLimit)
	}
	if rules.HandSize < MinHandSize || rules.HandSize > MaxHandSize {
		return fmt.Errorf("config validation: hand_size must be between %d and %d, got %d", MinHandSize, MaxHandSize, rules.HandSize)
	}

	if rules.TurnTimeoutMS <= 0 {
		return fmt.Errorf("config validation: turn_timeout_ms must be positive, got %d", rules.TurnTimeoutMS)
	}
	if rules.CountdownDelayMS < 0 {
		return fmt.Errorf("config validation: countdown_delay_ms must not be negative, got %d", rules.CountdownDelayMS)
	}

	return nil
}

// LoadRules loads a rule set from a JSON file
func LoadRules(filename string) (*Rules, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a JSON rule set
func ParseRules(data []byte) (*Rules, error) {
	var rules Rules
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, err
	}

	if err := ValidateRules(&rules); err != nil {
		return nil, err
	}

	return &rules, nil
}
