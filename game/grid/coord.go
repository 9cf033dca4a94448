package grid

import (
	"fmt"
	"math"
)

// Coord is an opaque tile address. It indexes the grid's Tile arena.
type Coord int

// NoCoord marks the absence of a coordinate (an eliminated player, for one).
const NoCoord Coord = -1

// Point is a native euclid2 coordinate
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p+q
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p-q
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p scaled by k
func (p Point) Scale(k int) Point { return Point{X: p.X * k, Y: p.Y * k} }

// String formats the point for logs and tool output
func (p Point) String() string { return fmt.Sprintf("(x=%d,y=%d)", p.X, p.Y) }

// RoundPoint rounds a fractional position to the nearest lattice point.
func RoundPoint(x, y float64) Point {
	return Point{X: int(math.Round(x)), Y: int(math.Round(y))}
}

// Axial is a native beehive coordinate. Dash and Bash are two of the three
// hexagonal axes; the third (bosh) is implied by -dash-bash.
type Axial struct {
	Dash int `json:"dash"`
	Bash int `json:"bash"`
}

// Add returns a+b
func (a Axial) Add(b Axial) Axial { return Axial{Dash: a.Dash + b.Dash, Bash: a.Bash + b.Bash} }

// Sub returns a-b
func (a Axial) Sub(b Axial) Axial { return Axial{Dash: a.Dash - b.Dash, Bash: a.Bash - b.Bash} }

// Scale returns a scaled by k
func (a Axial) Scale(k int) Axial { return Axial{Dash: a.Dash * k, Bash: a.Bash * k} }

// Norm returns the hexagonal distance from the origin.
func (a Axial) Norm() int {
	return (abs(a.Dash) + abs(a.Bash) + abs(a.Dash+a.Bash)) / 2
}

// String formats the coordinate for logs and tool output
func (a Axial) String() string { return fmt.Sprintf("(dash=%d,bash=%d)", a.Dash, a.Bash) }

// RoundAxial rounds a fractional axial position using cube rounding.
func RoundAxial(dash, bash float64) Axial {
	bosh := -dash - bash
	rd, rb, ro := math.Round(dash), math.Round(bash), math.Round(bosh)
	dd, db, do := math.Abs(rd-dash), math.Abs(rb-bash), math.Abs(ro-bosh)
	switch {
	case dd > db && dd > do:
		rd = -rb - ro
	case db > do:
		rb = -rd - ro
	}
	return Axial{Dash: int(rd), Bash: int(rb)}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// mod returns x modulo m in [0, m)
func mod(x, m int) int {
	r := x % m
	if r < 0 {
		r += m
	}
	return r
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
