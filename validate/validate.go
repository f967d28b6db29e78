// Command validate checks the rule preset JSON files in a directory
// (../configs by default). It checks:
//   - JSON structure, with unknown fields rejected
//   - the limits the server enforces on board size, players, hand and timers
//   - that the preset name matches the file name the server looks it up by
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/tiles-server/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single preset file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var rules engine.Rules
	if err := dec.Decode(&rules); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if err := engine.ValidateRules(&rules); err != nil {
		result.fail("%s", strings.TrimPrefix(err.Error(), "config validation: "))
		return result
	}

	id := strings.TrimSuffix(result.File, ".json")
	if rules.Name != id {
		result.fail("name %q does not match file name %q", rules.Name, id)
	}

	if result.Valid {
		result.Errors = append(result.Errors,
			fmt.Sprintf("✓ Name: %s", rules.Name),
			fmt.Sprintf("✓ Board: %dx%d (%d border cells)", rules.BoardWidth, rules.BoardHeight, borderCells(&rules)),
			fmt.Sprintf("✓ Players: up to %d, hand of %d", rules.PlayerLimit, rules.HandSize),
			fmt.Sprintf("✓ Turn timeout: %s, countdown: %s", rules.TurnTimeout(), rules.CountdownDelay()),
		)
	}

	return result
}

// borderCells counts the cells on the edge of the board
func borderCells(rules *engine.Rules) int {
	return 2*rules.BoardWidth + 2*rules.BoardHeight - 4
}

// main validates every *.json file in the directory given as the first
// argument, printing a concise report and exiting with non-zero status if
// any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No presets found in %s\n", configDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Println("  ❌ " + err)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All presets are valid!")
	} else {
		fmt.Println("❌ Some presets have errors")
		os.Exit(1)
	}
}
