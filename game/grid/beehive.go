package grid

import (
	"math"
	"math/rand"
)

const (
	beehiveMin       = 2
	beehiveMax       = 24
	beehiveThreshold = 18
)

// beehive is a hexagonal board with side lengths dash, bash and bosh. It does
// not wrap: points off the board are clamped onto it.
type beehive struct{}

func (beehive) ID() TopologyID { return Beehive }

func (beehive) Bounds() (int, int) { return beehiveMin, beehiveMax }

func (beehive) Validate(d Dimensions) error {
	if err := checkAxis("dash", d.Dash, beehiveMin, beehiveMax); err != nil {
		return err
	}
	if err := checkAxis("bash", d.Bash, beehiveMin, beehiveMax); err != nil {
		return err
	}
	return checkAxis("bosh", d.Bosh, beehiveMin, beehiveMax)
}

func (beehive) Area(d Dimensions) int {
	a, b, c := d.Dash, d.Bash, d.Bosh
	return a*b + b*c + c*a - a - b - c + 1
}

// AmbiguityThreshold: the 7 sources of a tile reach a radius-2 hexagon of 19
// tiles, less the tile itself.
func (beehive) AmbiguityThreshold() int { return beehiveThreshold }

func (beehive) newLattice(d Dimensions) lattice {
	h := &hexBoard{a: d.Dash, b: d.Bash, c: d.Bosh}
	rows := h.maxBash() + 1
	h.rowStart = make([]int, rows+1)
	for bash := 0; bash < rows; bash++ {
		lo, hi := h.rowRange(bash)
		h.rowStart[bash+1] = h.rowStart[bash] + hi - lo + 1
	}
	h.points = make([]Axial, 0, h.rowStart[rows])
	for bash := 0; bash < rows; bash++ {
		lo, hi := h.rowRange(bash)
		for dash := lo; dash <= hi; dash++ {
			h.points = append(h.points, Axial{Dash: dash, Bash: bash})
		}
	}
	return h
}

// hexBoard stores points with dash in [0, a+c-2], bash in [0, b+c-2] and
// c-1 <= dash+bash <= a+b+c-3, row by row on bash.
type hexBoard struct {
	a, b, c  int
	rowStart []int
	points   []Axial
}

func (h *hexBoard) maxDash() int { return h.a + h.c - 2 }
func (h *hexBoard) maxBash() int { return h.b + h.c - 2 }
func (h *hexBoard) minSum() int  { return h.c - 1 }
func (h *hexBoard) maxSum() int  { return h.a + h.b + h.c - 3 }

func (h *hexBoard) rowRange(bash int) (int, int) {
	lo := max(0, h.minSum()-bash)
	hi := min(h.maxDash(), h.maxSum()-bash)
	return lo, hi
}

func (h *hexBoard) size() int { return len(h.points) }

func (h *hexBoard) contains(p Axial) bool {
	if p.Bash < 0 || p.Bash > h.maxBash() {
		return false
	}
	lo, hi := h.rowRange(p.Bash)
	return p.Dash >= lo && p.Dash <= hi
}

func (h *hexBoard) clampAxial(p Axial) Axial {
	bash := clamp(p.Bash, 0, h.maxBash())
	lo, hi := h.rowRange(bash)
	return Axial{Dash: clamp(p.Dash, lo, hi), Bash: bash}
}

func (h *hexBoard) point(c Coord) Axial {
	return h.points[mod(int(c), len(h.points))]
}

func (h *hexBoard) index(p Axial) Coord {
	p = h.clampAxial(p)
	lo, _ := h.rowRange(p.Bash)
	return Coord(h.rowStart[p.Bash] + p.Dash - lo)
}

func (h *hexBoard) neighbors(c Coord, r int) []Coord {
	p := h.point(c)
	out := make([]Coord, 0, 3*r*(r+1)+1)
	for dd := -r; dd <= r; dd++ {
		for db := max(-r, -dd-r); db <= min(r, -dd+r); db++ {
			q := p.Add(Axial{Dash: dd, Bash: db})
			if h.contains(q) {
				out = append(out, h.index(q))
			}
		}
	}
	return out
}

func (h *hexBoard) distance(a, b Coord) int {
	return h.point(b).Sub(h.point(a)).Norm()
}

// cartesian projects an axial point onto the plane
func cartesian(p Axial) (float64, float64) {
	return float64(p.Dash) + float64(p.Bash)/2, float64(p.Bash) * math.Sqrt(3) / 2
}

func (h *hexBoard) breakTie(rng *rand.Rand, _ Coord, dest Coord, options []Coord) Coord {
	if len(options) == 1 {
		return options[0]
	}
	dx, dy := cartesian(h.point(dest))
	best := math.Inf(1)
	var closest []Coord
	for _, o := range options {
		ox, oy := cartesian(h.point(o))
		d := math.Hypot(ox-dx, oy-dy)
		switch {
		case d < best-1e-9:
			best = d
			closest = append(closest[:0], o)
		case math.Abs(d-best) <= 1e-9:
			closest = append(closest, o)
		}
	}
	return closest[rng.Intn(len(closest))]
}

func (h *hexBoard) reflect(avoid, source Coord) Coord {
	sp := h.point(source)
	return h.index(sp.Add(sp.Sub(h.point(avoid))))
}

func (h *hexBoard) randomAround(rng *rand.Rand, origin Coord, r int) Coord {
	p := h.point(origin)
	if r <= 0 {
		return h.index(p)
	}
	// sample the disc, snap to the lattice, retry past the hexagon's corners
	for {
		rho := float64(r) * math.Sqrt(rng.Float64())
		theta := 2 * math.Pi * rng.Float64()
		x, y := rho*math.Cos(theta), rho*math.Sin(theta)
		bash := y * 2 / math.Sqrt(3)
		off := RoundAxial(x-bash/2, bash)
		if off.Norm() <= r {
			return h.index(p.Add(off))
		}
	}
}

func (h *hexBoard) extend(from, via Coord) Coord {
	vp := h.point(via)
	return h.index(vp.Add(vp.Sub(h.point(from))))
}

func (h *hexBoard) pointOf(c Coord) Native { return h.point(c) }

func (h *hexBoard) coordOf(n Native) Coord {
	switch p := n.(type) {
	case Axial:
		return h.index(p)
	case *Axial:
		return h.index(*p)
	}
	return NoCoord
}
