package grid

import (
	"errors"
	"fmt"
	"math/rand"
)

// TopologyID names a tiling topology
type TopologyID string

const (
	// Euclid2 is the toroidal rectangular lattice
	Euclid2 TopologyID = "euclid2"
	// Beehive is the bounded hexagonal lattice
	Beehive TopologyID = "beehive"
)

var (
	// ErrUnknownTopology is returned for a TopologyID outside the closed set
	ErrUnknownTopology = errors.New("unknown topology")
	// ErrDimensions is returned when dimensions are outside a topology's bounds
	ErrDimensions = errors.New("dimensions out of bounds")
)

// Dimensions are the construction arguments of a grid. Euclid2 reads Height
// and Width; Beehive reads the three side lengths Dash, Bash and Bosh.
type Dimensions struct {
	Height int `json:"height,omitempty"`
	Width  int `json:"width,omitempty"`
	Dash   int `json:"dash,omitempty"`
	Bash   int `json:"bash,omitempty"`
	Bosh   int `json:"bosh,omitempty"`
}

// String renders the dimensions the way the topology reads them
func (d Dimensions) String() string {
	if d.Dash != 0 || d.Bash != 0 || d.Bosh != 0 {
		return fmt.Sprintf("%d/%d/%d", d.Dash, d.Bash, d.Bosh)
	}
	return fmt.Sprintf("%dx%d", d.Height, d.Width)
}

// Native is a topology's own point type (Point or Axial)
type Native interface {
	fmt.Stringer
}

// Topology is the fixed set of operations of one tiling
type Topology interface {
	ID() TopologyID
	// Bounds returns the inclusive min and max of every dimension axis
	Bounds() (min, max int)
	Validate(dims Dimensions) error
	Area(dims Dimensions) int
	// AmbiguityThreshold is the largest number of sequences that can be live
	// around a tile being relabeled. A language must offer more
	// independent choices than this.
	AmbiguityThreshold() int
	newLattice(dims Dimensions) lattice
}

// lattice is the per-grid geometry built by a Topology
type lattice interface {
	size() int
	// neighbors returns every in-board coord within r of c, c included, in a
	// deterministic order without duplicates.
	neighbors(c Coord, r int) []Coord
	distance(a, b Coord) int
	// breakTie picks among equally close options when stepping from source toward dest
	breakTie(rng *rand.Rand, source, dest Coord, options []Coord) Coord
	// reflect mirrors avoid through source
	reflect(avoid, source Coord) Coord
	randomAround(rng *rand.Rand, origin Coord, r int) Coord
	// extend continues the step from -> via one more step
	extend(from, via Coord) Coord
	pointOf(c Coord) Native
	coordOf(n Native) Coord
}

// ImplementationFor resolves a TopologyID to its operations.
func ImplementationFor(id TopologyID) (Topology, error) {
	switch id {
	case Euclid2:
		return euclid2{}, nil
	case Beehive:
		return beehive{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopology, id)
	}
}

// Topologies lists every TopologyID in a stable order
func Topologies() []TopologyID {
	return []TopologyID{Euclid2, Beehive}
}

func checkAxis(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s=%d not in [%d, %d]", ErrDimensions, name, v, lo, hi)
	}
	return nil
}

// dedupe keeps the first occurrence of each coord
func dedupe(cs []Coord) []Coord {
	seen := make(map[Coord]bool, len(cs))
	out := cs[:0]
	for _, c := range cs {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
