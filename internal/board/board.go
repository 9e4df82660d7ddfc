package board

import "math/rand"

type Color string

// Palette matches the six tile sprites shipped with the client.
var Colors = []Color{"blue", "green", "orange", "red", "pink", "yellow"}

const (
	DefaultRows = 8
	DefaultCols = 8
)

// Tile is a colored piece occupying exactly one Field.
type Tile struct {
	Color Color
}

// Field is a fixed grid cell holding zero or one tile.
type Field struct {
	Row  int
	Col  int
	Tile *Tile
}

// IsNeighbour reports whether other is exactly one step away
// horizontally or vertically.
func (f *Field) IsNeighbour(other *Field) bool {
	dr := f.Row - other.Row
	if dr < 0 {
		dr = -dr
	}
	dc := f.Col - other.Col
	if dc < 0 {
		dc = -dc
	}
	return dr+dc == 1
}

type Board struct {
	rows   int
	cols   int
	fields [][]*Field
	rng    *rand.Rand
}

// New builds a rows x cols board with every field holding a random tile.
func New(rows, cols int, rng *rand.Rand) *Board {
	b := &Board{rows: rows, cols: cols, rng: rng}
	b.fields = make([][]*Field, rows)
	for r := 0; r < rows; r++ {
		b.fields[r] = make([]*Field, cols)
		for c := 0; c < cols; c++ {
			b.fields[r][c] = &Field{Row: r, Col: c, Tile: b.RandomTile()}
		}
	}
	return b
}

// NewFromLayout builds a board with a fixed color layout. An empty color
// leaves the field without a tile. Row 0 is the top row.
func NewFromLayout(layout [][]Color, rng *rand.Rand) *Board {
	rows := len(layout)
	cols := len(layout[0])
	b := &Board{rows: rows, cols: cols, rng: rng}
	b.fields = make([][]*Field, rows)
	for r := 0; r < rows; r++ {
		b.fields[r] = make([]*Field, cols)
		for c := 0; c < cols; c++ {
			f := &Field{Row: r, Col: c}
			if layout[r][c] != "" {
				f.Tile = &Tile{Color: layout[r][c]}
			}
			b.fields[r][c] = f
		}
	}
	return b
}

func (b *Board) Rows() int { return b.rows }
func (b *Board) Cols() int { return b.cols }

// Field returns the field at (row, col), or nil when out of bounds.
func (b *Board) Field(row, col int) *Field {
	if row < 0 || row >= b.rows || col < 0 || col >= b.cols {
		return nil
	}
	return b.fields[row][col]
}

// Fields returns every field in row-major order.
func (b *Board) Fields() []*Field {
	out := make([]*Field, 0, b.rows*b.cols)
	for r := 0; r < b.rows; r++ {
		out = append(out, b.fields[r]...)
	}
	return out
}

// EmptyFields returns the fields currently without a tile, row-major.
func (b *Board) EmptyFields() []*Field {
	var out []*Field
	for _, f := range b.Fields() {
		if f.Tile == nil {
			out = append(out, f)
		}
	}
	return out
}

// RandomTile draws a tile from the palette using the board's rand source.
func (b *Board) RandomTile() *Tile {
	return &Tile{Color: Colors[b.rng.Intn(len(Colors))]}
}

// Swap exchanges tile ownership between two fields unconditionally.
// Adjacency is the engine's concern, not the board's.
func (b *Board) Swap(a, c *Field) {
	a.Tile, c.Tile = c.Tile, a.Tile
}

// RemoveTile empties a field.
func (b *Board) RemoveTile(f *Field) {
	f.Tile = nil
}

// DropInto moves the nearest tile above the empty field down into it,
// reporting whether any tile moved.
func (b *Board) DropInto(empty *Field) bool {
	for row := empty.Row - 1; row >= 0; row-- {
		above := b.fields[row][empty.Col]
		if above.Tile != nil {
			empty.Tile = above.Tile
			above.Tile = nil
			return true
		}
	}
	return false
}
