// Package config loads the rule presets a server can run with.
//
// A preset is a JSON file holding an engine.Rules value:
//
//	{
//	  "name": "classic",
//	  "description": "Classic 5x5 board, up to four players, ten second turns",
//	  "board_width": 5,
//	  "board_height": 5,
//	  "player_limit": 4,
//	  "hand_size": 4,
//	  "turn_timeout_ms": 10000,
//	  "countdown_delay_ms": 5000
//	}
//
// Presets live in a directory (TILES_CONFIG_DIR, "configs" by default) and
// are addressed by file name without the extension. The classic and blitz
// presets are compiled in and are used when no file of that name exists.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		return err
//	}
//
//	rules, err := manager.LoadConfig("blitz")
//	presets, err := manager.ListConfigs()
//
// Every preset is checked with engine.ValidateRules when it is loaded or
// saved; a file that fails validation yields ErrInvalidConfig.
package config
