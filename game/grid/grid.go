package grid

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrTooManySpawns is returned when more spawn points are requested than tiles exist
var ErrTooManySpawns = errors.New("more spawn points than tiles")

// Grid is a topology-specific arena of tiles. It is not safe for concurrent
// use; the owning game serializes access.
type Grid struct {
	topology Topology
	dims     Dimensions
	lat      lattice
	tiles    []Tile
	// adjacency caches the radius-1 neighborhood of every tile
	adjacency [][]Coord
	rng       *rand.Rand
}

// New builds a grid for the given topology and dimensions. A nil rng seeds
// one from the clock.
func New(id TopologyID, dims Dimensions, rng *rand.Rand) (*Grid, error) {
	topo, err := ImplementationFor(id)
	if err != nil {
		return nil, err
	}
	if err := topo.Validate(dims); err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	lat := topo.newLattice(dims)
	g := &Grid{
		topology:  topo,
		dims:      dims,
		lat:       lat,
		tiles:     make([]Tile, lat.size()),
		adjacency: make([][]Coord, lat.size()),
		rng:       rng,
	}
	for i := range g.tiles {
		g.tiles[i] = Tile{Coord: Coord(i), Occupant: NoOccupant}
		g.adjacency[i] = lat.neighbors(Coord(i), 1)
	}
	return g, nil
}

// Topology returns the grid's topology
func (g *Grid) Topology() Topology { return g.topology }

// Dimensions returns the construction dimensions
func (g *Grid) Dimensions() Dimensions { return g.dims }

// Area returns the closed-form tile count for the grid's dimensions
func (g *Grid) Area() int { return g.topology.Area(g.dims) }

// Len returns the number of tiles in the arena
func (g *Grid) Len() int { return len(g.tiles) }

// AmbiguityThreshold returns the topology's threshold
func (g *Grid) AmbiguityThreshold() int { return g.topology.AmbiguityThreshold() }

// Rand exposes the grid's random source so callers share one seed
func (g *Grid) Rand() *rand.Rand { return g.rng }

// Normalize wraps a coord into the arena's index range
func (g *Grid) Normalize(c Coord) Coord {
	return Coord(mod(int(c), len(g.tiles)))
}

// TileAt returns the tile at c. Out-of-range indices wrap.
func (g *Grid) TileAt(c Coord) *Tile {
	return &g.tiles[g.Normalize(c)]
}

// Tiles returns the arena in coord order
func (g *Grid) Tiles() []Tile { return g.tiles }

func (g *Grid) around(c Coord, r int) []Coord {
	c = g.Normalize(c)
	if r == 1 {
		return g.adjacency[c]
	}
	if r <= 0 {
		return []Coord{c}
	}
	return g.lat.neighbors(c, r)
}

// Neighborhood returns the coords within radius r of c, c included
func (g *Grid) Neighborhood(c Coord, r int) []Coord {
	return append([]Coord(nil), g.around(c, r)...)
}

// TileDestsFrom returns the tiles a player at c can reach within radius r.
func (g *Grid) TileDestsFrom(c Coord, r int) []*Tile {
	cs := g.around(c, r)
	out := make([]*Tile, len(cs))
	for i, n := range cs {
		out[i] = &g.tiles[n]
	}
	return out
}

// TileSourcesTo returns the tiles from which c is reachable within radius r.
// Both topologies are symmetric so this equals TileDestsFrom.
func (g *Grid) TileSourcesTo(c Coord, r int) []*Tile {
	return g.TileDestsFrom(c, r)
}

// Distance returns the topology distance between two coords
func (g *Grid) Distance(a, b Coord) int {
	return g.lat.distance(g.Normalize(a), g.Normalize(b))
}

// GetUntToward picks the best unoccupied neighbor of source for approaching
// dest. It returns source when source equals dest or every neighbor is taken.
func (g *Grid) GetUntToward(source, dest Coord) Coord {
	source, dest = g.Normalize(source), g.Normalize(dest)
	if source == dest {
		return source
	}

	best := -1
	var ties []Coord
	for _, n := range g.adjacency[source] {
		if n == source || g.tiles[n].IsOccupied() {
			continue
		}
		d := g.lat.distance(n, dest)
		switch {
		case best < 0 || d < best:
			best = d
			ties = append(ties[:0], n)
		case d == best:
			ties = append(ties, n)
		}
	}
	if len(ties) == 0 {
		return source
	}
	return g.lat.breakTie(g.rng, source, dest, ties)
}

// GetUntAwayFrom steps from source away from avoid
func (g *Grid) GetUntAwayFrom(avoid, source Coord) Coord {
	source = g.Normalize(source)
	target := g.lat.reflect(g.Normalize(avoid), source)
	return g.GetUntToward(source, target)
}

// GetRandomCoordAround returns a random coord within radius of origin
func (g *Grid) GetRandomCoordAround(origin Coord, radius int) Coord {
	return g.lat.randomAround(g.rng, g.Normalize(origin), radius)
}

// Extend continues the step from -> via by one more step in the same direction
func (g *Grid) Extend(from, via Coord) Coord {
	return g.lat.extend(g.Normalize(from), g.Normalize(via))
}

// GetSpawnCoords draws distinct coords, one list per team, sized by
// memberCounts. No two spawn points coincide across teams.
func (g *Grid) GetSpawnCoords(memberCounts []int) ([][]Coord, error) {
	total := 0
	for _, n := range memberCounts {
		if n < 0 {
			return nil, fmt.Errorf("negative member count %d", n)
		}
		total += n
	}
	if total > len(g.tiles) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrTooManySpawns, total, len(g.tiles))
	}

	perm := g.rng.Perm(len(g.tiles))
	out := make([][]Coord, len(memberCounts))
	next := 0
	for team, n := range memberCounts {
		out[team] = make([]Coord, n)
		for i := range n {
			out[team][i] = Coord(perm[next])
			next++
		}
	}
	return out, nil
}

// Reset clears occupancy, labels and pickups. Update counters survive so that
// stale requests from before the reset are still refused.
func (g *Grid) Reset() {
	for i := range g.tiles {
		g.tiles[i].reset()
	}
}

// Describe returns the native point of c for display
func (g *Grid) Describe(c Coord) Native {
	return g.lat.pointOf(g.Normalize(c))
}

// CoordOf maps a native point to its coord, normalizing it onto the board.
// A native point of the wrong topology yields NoCoord.
func (g *Grid) CoordOf(n Native) Coord {
	return g.lat.coordOf(n)
}

// Format renders the grid's labels row by row for debugging
func (g *Grid) Format() string {
	var out []byte
	lastRow := -1
	for i := range g.tiles {
		row := 0
		switch p := g.lat.pointOf(Coord(i)).(type) {
		case Point:
			row = p.Y
		case Axial:
			row = p.Bash
		}
		if lastRow >= 0 && row != lastRow {
			out = append(out, '\n')
		}
		lastRow = row
		seq := g.tiles[i].Seq
		if seq == "" {
			seq = "."
		}
		if g.tiles[i].IsOccupied() {
			seq = fmt.Sprintf("@%d", g.tiles[i].Occupant)
		}
		out = append(out, fmt.Sprintf("%-4s", seq)...)
	}
	return string(out)
}
