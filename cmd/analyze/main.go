// Command analyze prints a human-readable report of the tile catalogue: each
// tile's connections, how many distinct orientations it has, and what kind
// of paths it carries. Pass preset files as arguments to also summarise the
// boards they describe.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/wricardo/tiles-server/game/engine"
)

// PathShape classifies a connection by the sides it joins
type PathShape int

const (
	ShapeUTurn PathShape = iota
	ShapeTurn
	ShapeStraight
)

func (s PathShape) String() string {
	switch s {
	case ShapeUTurn:
		return "u-turn"
	case ShapeTurn:
		return "turn"
	default:
		return "straight"
	}
}

// TileAnalysis describes one catalogue tile
type TileAnalysis struct {
	ID           int
	Pairs        [][2]int
	Orientations int
	Shapes       map[PathShape]int
}

func shapeOf(a, b int) PathShape {
	sa, sb := engine.Side(a), engine.Side(b)
	switch {
	case sa == sb:
		return ShapeUTurn
	case (sa+2)%4 == sb:
		return ShapeStraight
	default:
		return ShapeTurn
	}
}

func analyzeTiles() []TileAnalysis {
	tiles := engine.Tiles()
	out := make([]TileAnalysis, len(tiles))
	for id, tile := range tiles {
		a := TileAnalysis{
			ID:           id,
			Pairs:        tile.Pairs(),
			Orientations: tile.Symmetry(),
			Shapes:       map[PathShape]int{},
		}
		for _, p := range a.Pairs {
			a.Shapes[shapeOf(p[0], p[1])]++
		}
		out[id] = a
	}
	return out
}

// symmetryClasses groups tile ids by their number of distinct orientations
func symmetryClasses(tiles []TileAnalysis) map[int][]int {
	classes := map[int][]int{}
	for _, t := range tiles {
		classes[t.Orientations] = append(classes[t.Orientations], t.ID)
	}
	return classes
}

func printCatalogue(w io.Writer, tiles []TileAnalysis) {
	fmt.Fprintf(w, "=== Tile catalogue (%d tiles) ===\n", len(tiles))
	for _, t := range tiles {
		pairs := make([]string, len(t.Pairs))
		for i, p := range t.Pairs {
			pairs[i] = fmt.Sprintf("%d-%d", p[0], p[1])
		}
		fmt.Fprintf(w, "%2d  %-16s  orientations: %d  u-turns: %d  turns: %d  straights: %d\n",
			t.ID, strings.Join(pairs, " "), t.Orientations,
			t.Shapes[ShapeUTurn], t.Shapes[ShapeTurn], t.Shapes[ShapeStraight])
	}

	classes := symmetryClasses(tiles)
	keys := make([]int, 0, len(classes))
	for k := range classes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	fmt.Fprintf(w, "\n=== Symmetry classes ===\n")
	total := 0
	for _, k := range keys {
		fmt.Fprintf(w, "%d orientation(s): %d tiles %v\n", k, len(classes[k]), classes[k])
		total += k * len(classes[k])
	}
	fmt.Fprintf(w, "Distinct placed faces: %d\n", total)
}

func printPreset(w io.Writer, path string) {
	fmt.Fprintf(w, "\n=== Analyzing %s ===\n", path)
	rules, err := engine.LoadRules(path)
	if err != nil {
		fmt.Fprintf(w, "Error loading preset: %v\n", err)
		return
	}

	board := engine.NewBoardFromRules(rules)
	border := len(board.EmptyBorderCells())
	cells := rules.BoardWidth * rules.BoardHeight

	fmt.Fprintf(w, "Name: %s\n", rules.Name)
	fmt.Fprintf(w, "Board: %d x %d (%d cells, %d on the border)\n", rules.BoardWidth, rules.BoardHeight, cells, border)
	fmt.Fprintf(w, "Players: up to %d, hand of %d\n", rules.PlayerLimit, rules.HandSize)
	fmt.Fprintf(w, "Turn timeout: %s\n", rules.TurnTimeout())
	if rules.PlayerLimit*2 > border {
		fmt.Fprintf(w, "⚠️  WARNING: a full lobby leaves fewer than two border cells per player\n")
	}
}

func main() {
	printCatalogue(os.Stdout, analyzeTiles())
	for _, path := range os.Args[1:] {
		printPreset(os.Stdout, path)
	}
}
