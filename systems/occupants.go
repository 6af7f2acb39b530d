package systems

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/natsel/components"
)

// Occupants owns the ECS world and the grid and keeps them in step:
// every live entity is placed on exactly one cell.
type Occupants struct {
	world *ecs.World
	grid  *Grid

	// Creation mappers, one per occupant variant
	foodMapper  *ecs.Map2[components.Identity, components.Food]
	orgMapper   *ecs.Map3[components.Identity, components.Genes, components.Organism]
	trailMapper *ecs.Map2[components.Identity, components.Pheromone]

	// Individual component mappers for lookups
	identityMap *ecs.Map1[components.Identity]
	foodMap     *ecs.Map1[components.Food]
	genesMap    *ecs.Map1[components.Genes]
	orgMap      *ecs.Map1[components.Organism]
	trailMap    *ecs.Map1[components.Pheromone]

	allFilter *ecs.Filter1[components.Identity]

	nextID uint32
}

// NewOccupants creates the occupant store over a fresh grid.
func NewOccupants(w *ecs.World, grid *Grid) *Occupants {
	return &Occupants{
		world:       w,
		grid:        grid,
		foodMapper:  ecs.NewMap2[components.Identity, components.Food](w),
		orgMapper:   ecs.NewMap3[components.Identity, components.Genes, components.Organism](w),
		trailMapper: ecs.NewMap2[components.Identity, components.Pheromone](w),
		identityMap: ecs.NewMap1[components.Identity](w),
		foodMap:     ecs.NewMap1[components.Food](w),
		genesMap:    ecs.NewMap1[components.Genes](w),
		orgMap:      ecs.NewMap1[components.Organism](w),
		trailMap:    ecs.NewMap1[components.Pheromone](w),
		allFilter:   ecs.NewFilter1[components.Identity](w),
		nextID:      1,
	}
}

// Grid returns the grid the occupants live on.
func (o *Occupants) Grid() *Grid { return o.grid }

// Alive reports whether e still exists.
func (o *Occupants) Alive(e ecs.Entity) bool { return o.world.Alive(e) }

// Identity returns the ID and kind of a live occupant.
func (o *Occupants) Identity(e ecs.Entity) components.Identity {
	return *o.identityMap.Get(e)
}

// Food returns the food component. e must be food.
func (o *Occupants) Food(e ecs.Entity) *components.Food { return o.foodMap.Get(e) }

// Genes returns the genes component. e must be an organism.
func (o *Occupants) Genes(e ecs.Entity) *components.Genes { return o.genesMap.Get(e) }

// Organism returns the life-state component. e must be an organism.
func (o *Occupants) Organism(e ecs.Entity) *components.Organism { return o.orgMap.Get(e) }

// Pheromone returns the trail component. e must be a trail.
func (o *Occupants) Pheromone(e ecs.Entity) *components.Pheromone { return o.trailMap.Get(e) }

// Position returns the cell e occupies.
func (o *Occupants) Position(e ecs.Entity) components.Position {
	p, _ := o.grid.PositionOf(e)
	return p
}

// NewFood creates a food occupant at p.
func (o *Occupants) NewFood(amount float64, p components.Position) (ecs.Entity, error) {
	id := o.identity(components.KindFood)
	food := components.Food{Amount: amount}
	e := o.foodMapper.NewEntity(&id, &food)
	return e, o.place(e, p)
}

// NewOrganism creates an organism occupant at p.
func (o *Occupants) NewOrganism(genes components.Genes, org components.Organism, p components.Position) (ecs.Entity, error) {
	id := o.identity(components.KindOrganism)
	e := o.orgMapper.NewEntity(&id, &genes, &org)
	return e, o.place(e, p)
}

// NewPheromone creates a trail marker at p.
func (o *Occupants) NewPheromone(trail components.Pheromone, p components.Position) (ecs.Entity, error) {
	id := o.identity(components.KindTrail)
	e := o.trailMapper.NewEntity(&id, &trail)
	return e, o.place(e, p)
}

// Destroy takes e off the grid and removes it from the world.
func (o *Occupants) Destroy(e ecs.Entity) error {
	if !o.world.Alive(e) {
		return fmt.Errorf("destroy: entity %v is not alive", e)
	}
	if err := o.grid.Remove(e); err != nil {
		return err
	}
	o.world.RemoveEntity(e)
	return nil
}

// Collect returns all live occupants of the given kinds sorted by ID.
// Sorting keeps results independent of ECS storage order.
func (o *Occupants) Collect(kinds ...components.Kind) []ecs.Entity {
	type entry struct {
		e  ecs.Entity
		id uint32
	}
	var found []entry

	query := o.allFilter.Query()
	for query.Next() {
		ident := query.Get()
		if slices.Contains(kinds, ident.Kind) {
			found = append(found, entry{e: query.Entity(), id: ident.ID})
		}
	}

	slices.SortFunc(found, func(a, b entry) int {
		return cmp.Compare(a.id, b.id)
	})

	out := make([]ecs.Entity, len(found))
	for i, f := range found {
		out[i] = f.e
	}
	return out
}

// NextID returns the ID the next created occupant will get.
func (o *Occupants) NextID() uint32 { return o.nextID }

func (o *Occupants) identity(kind components.Kind) components.Identity {
	id := components.Identity{ID: o.nextID, Kind: kind}
	o.nextID++
	return id
}

// place puts a new entity on the grid, undoing the creation on failure.
func (o *Occupants) place(e ecs.Entity, p components.Position) error {
	if err := o.grid.Place(e, p); err != nil {
		o.world.RemoveEntity(e)
		return err
	}
	return nil
}
