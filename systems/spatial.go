// Package systems implements the simulation rules: the grid, sensing and
// movement, feeding, pheromone decay, breeding, and cell sampling.
package systems

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/natsel/components"
)

// Connectivity selects the neighborhood shape.
type Connectivity uint8

const (
	// Moore is the 8-connected neighborhood (Chebyshev distance).
	Moore Connectivity = iota
	// VonNeumann is the 4-connected neighborhood (Manhattan distance).
	VonNeumann
)

// ParseConnectivity maps a config name to a Connectivity.
func ParseConnectivity(name string) (Connectivity, error) {
	switch name {
	case "moore":
		return Moore, nil
	case "von_neumann":
		return VonNeumann, nil
	}
	return Moore, fmt.Errorf("unknown connectivity %q", name)
}

// String returns the config name of the connectivity.
func (c Connectivity) String() string {
	if c == VonNeumann {
		return "von_neumann"
	}
	return "moore"
}

// Grid is a bounded 2D space where any number of occupants may share a cell.
// Cells keep their occupants in insertion order so iteration is deterministic.
type Grid struct {
	width  int
	height int
	cells  [][]ecs.Entity // flat grid of entity lists, index y*width+x
	where  map[ecs.Entity]components.Position

	border   []components.Position
	interior []components.Position
}

// NewGrid creates an empty grid and computes its border/interior partition.
func NewGrid(width, height int) *Grid {
	cells := make([][]ecs.Entity, width*height)
	for i := range cells {
		cells[i] = make([]ecs.Entity, 0, 4) // pre-allocate small capacity
	}

	g := &Grid{
		width:  width,
		height: height,
		cells:  cells,
		where:  make(map[ecs.Entity]components.Position),
	}

	// Row-major order keeps both partitions sorted
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := components.Position{X: x, Y: y}
			if x == 0 || y == 0 || x == width-1 || y == height-1 {
				g.border = append(g.border, p)
			} else {
				g.interior = append(g.interior, p)
			}
		}
	}

	return g
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Border returns the cells on the outer ring. The slice must not be modified.
func (g *Grid) Border() []components.Position { return g.border }

// Interior returns every cell not on the border. The slice must not be modified.
func (g *Grid) Interior() []components.Position { return g.interior }

// InBounds reports whether p lies on the grid.
func (g *Grid) InBounds(p components.Position) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

// Len returns the number of placed occupants.
func (g *Grid) Len() int { return len(g.where) }

// Neighborhood returns the in-bounds cells within radius of p, excluding p itself.
// Cells are ordered by column, then row.
func (g *Grid) Neighborhood(p components.Position, conn Connectivity, radius int) []components.Position {
	if radius <= 0 {
		return nil
	}

	var out []components.Position
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if conn == VonNeumann && abs(dx)+abs(dy) > radius {
				continue
			}
			q := components.Position{X: p.X + dx, Y: p.Y + dy}
			if g.InBounds(q) {
				out = append(out, q)
			}
		}
	}
	return out
}

// Occupants returns the entities in cell p in placement order.
// The slice is owned by the grid and is only valid until the next mutation.
func (g *Grid) Occupants(p components.Position) []ecs.Entity {
	if !g.InBounds(p) {
		return nil
	}
	return g.cells[g.index(p)]
}

// PositionOf returns the cell an entity occupies.
func (g *Grid) PositionOf(e ecs.Entity) (components.Position, bool) {
	p, ok := g.where[e]
	return p, ok
}

// Place puts an unplaced entity on the grid.
func (g *Grid) Place(e ecs.Entity, p components.Position) error {
	if !g.InBounds(p) {
		return fmt.Errorf("place: %v out of bounds", p)
	}
	if _, ok := g.where[e]; ok {
		return fmt.Errorf("place: entity %v already placed", e)
	}
	idx := g.index(p)
	g.cells[idx] = append(g.cells[idx], e)
	g.where[e] = p
	return nil
}

// Move relocates a placed entity.
func (g *Grid) Move(e ecs.Entity, p components.Position) error {
	if !g.InBounds(p) {
		return fmt.Errorf("move: %v out of bounds", p)
	}
	from, ok := g.where[e]
	if !ok {
		return fmt.Errorf("move: entity %v not placed", e)
	}
	if from == p {
		return nil
	}
	g.detach(e, from)
	idx := g.index(p)
	g.cells[idx] = append(g.cells[idx], e)
	g.where[e] = p
	return nil
}

// Remove takes a placed entity off the grid.
func (g *Grid) Remove(e ecs.Entity) error {
	from, ok := g.where[e]
	if !ok {
		return fmt.Errorf("remove: entity %v not placed", e)
	}
	g.detach(e, from)
	delete(g.where, e)
	return nil
}

// detach removes e from a cell list, keeping the order of the rest.
func (g *Grid) detach(e ecs.Entity, p components.Position) {
	idx := g.index(p)
	list := g.cells[idx]
	for i, other := range list {
		if other == e {
			copy(list[i:], list[i+1:])
			g.cells[idx] = list[:len(list)-1]
			return
		}
	}
}

// index returns the flat index for a cell.
func (g *Grid) index(p components.Position) int {
	return p.Y*g.width + p.X
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
