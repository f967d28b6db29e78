package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/tiles-server/game/engine"
	"github.com/wricardo/tiles-server/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultPreset is the preset used when none is named
const DefaultPreset = "classic"

// Manager handles rule preset loading and caching. Presets are read from
// JSON files in configDir; the built-in presets fill in for names that have
// no file.
type Manager struct {
	configDir     string
	defaultConfig *engine.Rules
	configs       map[string]*engine.Rules
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager. An empty configDir uses
// the built-in presets only.
func NewManager(configDir string) (*Manager, error) {
	if configDir != "" {
		if _, err := os.Stat(configDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("config directory does not exist: %s", configDir)
		}
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.Rules),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// LoadConfig loads a preset by name. The returned rules are shared and must
// not be modified.
func (m *Manager) LoadConfig(name string) (*engine.Rules, error) {
	name = strings.TrimSuffix(name, ".json")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, ErrConfigNotFound
	}

	m.mu.RLock()
	if rules, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return rules, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if rules, exists := m.configs[name]; exists {
		return rules, nil
	}

	rules, err := m.readPreset(name)
	if err != nil {
		return nil, err
	}

	m.configs[name] = rules
	return rules, nil
}

// readPreset reads a preset file, falling back to the built-in presets
func (m *Manager) readPreset(name string) (*engine.Rules, error) {
	if m.configDir != "" {
		data, err := os.ReadFile(filepath.Join(m.configDir, name+".json"))
		switch {
		case err == nil:
			rules, err := engine.ParseRules(data)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
			}
			return rules, nil
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if rules, ok := builtinPresets()[name]; ok {
		return rules, nil
	}
	return nil, ErrConfigNotFound
}

// ListConfigs returns information about all available presets, sorted by id
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	filenames := make(map[string]string)

	if m.configDir != "" {
		entries, err := os.ReadDir(m.configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read config directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			filenames[strings.TrimSuffix(entry.Name(), ".json")] = entry.Name()
		}
	}
	for name := range builtinPresets() {
		if _, ok := filenames[name]; !ok {
			filenames[name] = ""
		}
	}

	configs := make([]*service.ConfigInfo, 0, len(filenames))
	for name, filename := range filenames {
		rules, err := m.LoadConfig(name)
		if err != nil {
			// Skip invalid presets
			continue
		}

		configs = append(configs, &service.ConfigInfo{
			Filename:      filename,
			ConfigID:      name,
			Name:          rules.Name,
			Description:   rules.Description,
			BoardWidth:    rules.BoardWidth,
			BoardHeight:   rules.BoardHeight,
			PlayerLimit:   rules.PlayerLimit,
			HandSize:      rules.HandSize,
			TurnTimeoutMS: rules.TurnTimeoutMS,
		})
	}

	sort.Slice(configs, func(i, j int) bool {
		return configs[i].ConfigID < configs[j].ConfigID
	})
	return configs, nil
}

// GetDefault returns the default preset
func (m *Manager) GetDefault() *engine.Rules {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default preset by name
func (m *Manager) SetDefault(name string) error {
	rules, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = rules
	return nil
}

// RefreshCache drops every cached preset and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.Rules)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// loadDefaultConfig picks classic, else the first valid preset, else the
// engine defaults.
func (m *Manager) loadDefaultConfig() error {
	rules, err := m.LoadConfig(DefaultPreset)
	if err != nil {
		if errors.Is(err, ErrInvalidConfig) {
			return err
		}

		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			rules = engine.DefaultRules()
		} else if rules, err = m.LoadConfig(configs[0].ConfigID); err != nil {
			rules = engine.DefaultRules()
		}
	}

	m.mu.Lock()
	m.defaultConfig = rules
	m.mu.Unlock()
	return nil
}

// SaveConfig writes a preset to the config directory
func (m *Manager) SaveConfig(name string, rules *engine.Rules) error {
	if m.configDir == "" {
		return fmt.Errorf("no config directory to save %s in", name)
	}
	if err := engine.ValidateRules(rules); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	name = strings.TrimSuffix(name, ".json")
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: bad preset name %q", ErrInvalidConfig, name)
	}

	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.configDir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[name] = rules.Clone()
	m.mu.Unlock()

	return nil
}

// builtinPresets returns fresh copies of the presets compiled into the binary
func builtinPresets() map[string]*engine.Rules {
	blitz := engine.DefaultRules()
	blitz.Name = "blitz"
	blitz.Description = "Small 4x4 board for two or three players, three second turns"
	blitz.BoardWidth = 4
	blitz.BoardHeight = 4
	blitz.PlayerLimit = 3
	blitz.HandSize = 3
	blitz.TurnTimeoutMS = 3000
	blitz.CountdownDelayMS = 2000

	return map[string]*engine.Rules{
		DefaultPreset: engine.DefaultRules(),
		"blitz":       blitz,
	}
}
