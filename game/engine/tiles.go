package engine

import "sort"

// TileCount is the number of distinct tiles in the catalogue
const TileCount = 35

// Tile joins the eight edge points of a cell in four pairs.
// Tile[p] is the point connected to p.
type Tile [PointsPerTile]int

var tiles = generateTiles()

// Tiles returns a copy of the tile catalogue, indexed by tile id
func Tiles() []Tile {
	out := make([]Tile, len(tiles))
	copy(out, tiles)
	return out
}

// TileByID returns the tile with the given id
func TileByID(id int) (Tile, bool) {
	if id < 0 || id >= len(tiles) {
		return Tile{}, false
	}
	return tiles[id], true
}

// ValidTile reports whether id names a catalogue tile
func ValidTile(id int) bool {
	return id >= 0 && id < len(tiles)
}

// ValidRotation reports whether r is a quarter turn count
func ValidRotation(r int) bool {
	return r >= 0 && r < Rotations
}

// Rotate returns the tile turned by the given number of quarter turns
func (t Tile) Rotate(rotation int) Tile {
	shift := 2 * (((rotation % Rotations) + Rotations) % Rotations)
	var out Tile
	for p, q := range t {
		out[(p+shift)%PointsPerTile] = (q + shift) % PointsPerTile
	}
	return out
}

// Exit returns the point a path entering at entry leaves through
func (t Tile) Exit(entry, rotation int) int {
	return t.Rotate(rotation)[entry]
}

// Symmetry returns how many distinct orientations the tile has (1, 2 or 4)
func (t Tile) Symmetry() int {
	for r := 1; r < Rotations; r++ {
		if t.Rotate(r) == t {
			return r
		}
	}
	return Rotations
}

// Pairs lists each connection once as [from, to] with from < to
func (t Tile) Pairs() [][2]int {
	pairs := make([][2]int, 0, PointsPerTile/2)
	for p, q := range t {
		if p < q {
			pairs = append(pairs, [2]int{p, q})
		}
	}
	return pairs
}

// generateTiles enumerates every pairing of the eight points and keeps one
// representative per rotation class, ordered lexicographically.
func generateTiles() []Tile {
	seen := make(map[Tile]bool)
	var out []Tile

	var walk func(t Tile, used [PointsPerTile]bool)
	walk = func(t Tile, used [PointsPerTile]bool) {
		first := -1
		for p := 0; p < PointsPerTile; p++ {
			if !used[p] {
				first = p
				break
			}
		}
		if first < 0 {
			c := canonical(t)
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
			return
		}
		used[first] = true
		for q := first + 1; q < PointsPerTile; q++ {
			if used[q] {
				continue
			}
			next := used
			next[q] = true
			t[first], t[q] = q, first
			walk(t, next)
		}
	}
	walk(Tile{}, [PointsPerTile]bool{})

	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func canonical(t Tile) Tile {
	best := t
	for r := 1; r < Rotations; r++ {
		if c := t.Rotate(r); less(c, best) {
			best = c
		}
	}
	return best
}

func less(a, b Tile) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
