package board

// Combination is a same-color run of 3+ tiles, horizontal or vertical.
// Tiles are ordered left-to-right or top-to-bottom.
type Combination struct {
	Fields []*Field
}

// Tiles returns the tiles of the run in scan order.
func (c Combination) Tiles() []*Tile {
	out := make([]*Tile, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Tile
	}
	return out
}

// FindCombinations scans every field in row-major order and reports the
// maximal same-color run extending right and, separately, down. Runs of
// length < 3 are ignored. Overlapping runs (L and T shapes, or the
// shorter suffixes of a longer run) are reported as separate
// combinations; the caller dedupes tiles at removal time.
func FindCombinations(b *Board) []Combination {
	var combos []Combination
	for r := 0; r < b.Rows(); r++ {
		for c := 0; c < b.Cols(); c++ {
			start := b.fields[r][c]
			if start.Tile == nil {
				continue
			}
			if run := runFrom(b, start, 0, 1); len(run) >= 3 {
				combos = append(combos, Combination{Fields: run})
			}
			if run := runFrom(b, start, 1, 0); len(run) >= 3 {
				combos = append(combos, Combination{Fields: run})
			}
		}
	}
	return combos
}

func runFrom(b *Board, start *Field, dr, dc int) []*Field {
	run := []*Field{start}
	for {
		next := b.Field(start.Row+len(run)*dr, start.Col+len(run)*dc)
		if next == nil || next.Tile == nil || next.Tile.Color != start.Tile.Color {
			return run
		}
		run = append(run, next)
	}
}
