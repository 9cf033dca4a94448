// Package grid provides the addressable tile space of the Typing Arena.
//
// The grid package implements:
//   - Opaque tile coordinates backed by an index into a Tile arena
//   - Two tiling topologies: a toroidal rectangular lattice ("euclid2")
//     and a bounded hexagonal lattice ("beehive")
//   - Adjacency, distance and spawn-placement queries
//   - Pursuit and flee path helpers used by bots
//   - The per-topology ambiguity threshold checked against languages
//
// Core Types:
//
// Coord is an index into the grid's Tile arena. Every topology maps it to and
// from a native point type (Point for euclid2, Axial for beehive) on which
// add/sub/scale/round arithmetic is defined. Tile carries occupancy, the
// displayed char/seq label, an update counter and a health pickup.
//
// Topologies:
//
// A Topology is resolved through ImplementationFor, a pure function over the
// closed set of TopologyID values. Adding a topology means adding a case there
// and a lattice implementation; the protocol never sees native coordinates.
//
// Usage:
//
//	g, err := grid.New(grid.Euclid2, grid.Dimensions{Height: 11, Width: 11}, rng)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, t := range g.TileDestsFrom(g.CoordOf(grid.Point{X: 5, Y: 5}), 1) {
//		fmt.Println(t.Coord, t.Seq)
//	}
//
// Failure Semantics:
//
// Construction fails when dimensions are outside the topology's bounds. All
// other queries normalize invalid coordinates instead of rejecting them.
package grid
