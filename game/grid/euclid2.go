package grid

import "math/rand"

const (
	euclid2Min       = 5
	euclid2Max       = 63
	euclid2Threshold = 24
)

// euclid2 is the toroidal rectangular topology
type euclid2 struct{}

func (euclid2) ID() TopologyID { return Euclid2 }

func (euclid2) Bounds() (int, int) { return euclid2Min, euclid2Max }

func (euclid2) Validate(d Dimensions) error {
	if err := checkAxis("height", d.Height, euclid2Min, euclid2Max); err != nil {
		return err
	}
	return checkAxis("width", d.Width, euclid2Min, euclid2Max)
}

func (euclid2) Area(d Dimensions) int { return d.Height * d.Width }

// AmbiguityThreshold: the 3x3 sources of a tile reach a 5x5 block, less the tile itself.
func (euclid2) AmbiguityThreshold() int { return euclid2Threshold }

func (euclid2) newLattice(d Dimensions) lattice {
	return &torus{h: d.Height, w: d.Width}
}

type torus struct {
	h, w int
}

func (t *torus) size() int { return t.h * t.w }

func (t *torus) point(c Coord) Point {
	i := mod(int(c), t.size())
	return Point{X: i % t.w, Y: i / t.w}
}

func (t *torus) index(p Point) Coord {
	return Coord(mod(p.Y, t.h)*t.w + mod(p.X, t.w))
}

// delta is the shortest wrapped vector from a to b
func (t *torus) delta(a, b Point) Point {
	dx := mod(b.X-a.X, t.w)
	if dx > t.w/2 {
		dx -= t.w
	}
	dy := mod(b.Y-a.Y, t.h)
	if dy > t.h/2 {
		dy -= t.h
	}
	return Point{X: dx, Y: dy}
}

func (t *torus) neighbors(c Coord, r int) []Coord {
	p := t.point(c)
	out := make([]Coord, 0, (2*r+1)*(2*r+1))
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			out = append(out, t.index(p.Add(Point{X: dx, Y: dy})))
		}
	}
	return dedupe(out)
}

func (t *torus) distance(a, b Coord) int {
	d := t.delta(t.point(a), t.point(b))
	return max(abs(d.X), abs(d.Y))
}

func (t *torus) breakTie(rng *rand.Rand, source, dest Coord, options []Coord) Coord {
	if len(options) == 1 {
		return options[0]
	}
	sp := t.point(source)
	v := t.delta(sp, t.point(dest))
	longest := max(abs(v.X), abs(v.Y))
	axialness := 0.0
	if longest > 0 {
		axialness = float64(abs(abs(v.X)-abs(v.Y))) / float64(longest)
	}

	var axial []Coord
	for _, o := range options {
		step := t.delta(sp, t.point(o))
		if step.X == 0 || step.Y == 0 {
			axial = append(axial, o)
		}
	}
	if len(axial) > 0 && rng.Float64() < axialness {
		return axial[rng.Intn(len(axial))]
	}
	return options[rng.Intn(len(options))]
}

func (t *torus) reflect(avoid, source Coord) Coord {
	sp := t.point(source)
	away := t.delta(t.point(avoid), sp)
	return t.index(sp.Add(away))
}

func (t *torus) randomAround(rng *rand.Rand, origin Coord, r int) Coord {
	if r <= 0 {
		return t.index(t.point(origin))
	}
	off := Point{X: rng.Intn(2*r+1) - r, Y: rng.Intn(2*r+1) - r}
	return t.index(t.point(origin).Add(off))
}

func (t *torus) extend(from, via Coord) Coord {
	vp := t.point(via)
	return t.index(vp.Add(t.delta(t.point(from), vp)))
}

func (t *torus) pointOf(c Coord) Native { return t.point(c) }

func (t *torus) coordOf(n Native) Coord {
	switch p := n.(type) {
	case Point:
		return t.index(p)
	case *Point:
		return t.index(*p)
	}
	return NoCoord
}
