package engine

import "sort"

// BoardSnapshot is a serializable copy of a board
type BoardSnapshot struct {
	Width      int                   `json:"width"`
	Height     int                   `json:"height"`
	Cells      [][]Cell              `json:"cells"`
	Tokens     map[int]TokenPosition `json:"tokens"`
	Eliminated []int                 `json:"eliminated"`
}

// Snapshot copies the board state. Cells are indexed [y][x].
func (b *Board) Snapshot() BoardSnapshot {
	s := BoardSnapshot{
		Width:      b.width,
		Height:     b.height,
		Cells:      make([][]Cell, b.height),
		Tokens:     make(map[int]TokenPosition, len(b.positions)),
		Eliminated: []int{},
	}
	for y := 0; y < b.height; y++ {
		s.Cells[y] = make([]Cell, b.width)
		copy(s.Cells[y], b.cells[y*b.width:(y+1)*b.width])
	}
	for id, pos := range b.positions {
		s.Tokens[id] = pos
	}
	for id, out := range b.eliminated {
		if out {
			s.Eliminated = append(s.Eliminated, id)
		}
	}
	sort.Ints(s.Eliminated)
	return s
}
