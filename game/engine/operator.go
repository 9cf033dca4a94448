package engine

import (
	"strings"

	"github.com/wricardo/typing-arena/game/grid"
	"github.com/wricardo/typing-arena/game/protocol"
)

// Outcome is the result of one keystroke
type Outcome int

const (
	// Pending means the buffer still prefixes at least one option
	Pending Outcome = iota
	// Completed means the buffer named a tile and a request was produced
	Completed
	// Bell means the keystroke matched nothing and the buffer was cleared
	Bell
	// Ignored means the player cannot move right now
	Ignored
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Completed:
		return "completed"
	case Bell:
		return "bell"
	case Ignored:
		return "ignored"
	}
	return "unknown"
}

// Operator is a typed-input buffer bound to one player on a mirror. It only
// produces requests; sending them and marking the player in flight is up to
// the caller.
type Operator struct {
	PlayerID int
	// Boost makes the next completion a two-step boost
	Boost bool

	game   *Game
	buffer strings.Builder
	bells  int
}

// Buffer returns the partial input
func (o *Operator) Buffer() string { return o.buffer.String() }

// Bells counts dead ends and rejections since the operator was created
func (o *Operator) Bells() int { return o.bells }

// Clear empties the buffer
func (o *Operator) Clear() { o.buffer.Reset() }

func (o *Operator) player() *Player {
	p, _ := o.game.Player(o.PlayerID)
	return p
}

// options returns the labeled tiles the player could step to
func (o *Operator) options() []*grid.Tile {
	p := o.player()
	if p == nil || p.Coord == grid.NoCoord {
		return nil
	}
	var out []*grid.Tile
	for _, t := range o.game.Grid.TileDestsFrom(p.Coord, 1) {
		if t.Coord != p.Coord && t.Seq != "" {
			out = append(out, t)
		}
	}
	return out
}

// Type feeds one keystroke. A Completed outcome carries the request.
func (o *Operator) Type(r rune) (Outcome, *protocol.Req) {
	p := o.player()
	if p == nil || p.Eliminated || p.RequestInFlight || o.game.Status != protocol.StatusPlaying {
		return Ignored, nil
	}

	o.buffer.WriteRune(r)
	typed := o.buffer.String()

	var match *grid.Tile
	prefixes := 0
	for _, t := range o.options() {
		if strings.HasPrefix(t.Seq, typed) {
			prefixes++
			if t.Seq == typed {
				match = t
			}
		}
	}
	switch {
	case prefixes == 0:
		o.ring()
		return Bell, nil
	case match != nil && prefixes == 1:
		o.Clear()
		return Completed, o.request(p, match)
	}
	return Pending, nil
}

func (o *Operator) request(p *Player, step *grid.Tile) *protocol.Req {
	req := &protocol.Req{
		PlayerID:  p.ID,
		PlayerNow: p.ReqNow,
		MoveType:  protocol.MoveNormal,
		Dest:      protocol.Dest{Coord: step.Coord, Now: step.Now},
	}
	if o.Boost {
		far := o.game.Grid.TileAt(o.game.Grid.Extend(p.Coord, step.Coord))
		if far.Coord != step.Coord && far.Coord != p.Coord {
			req.MoveType = protocol.MoveBoost
			req.Dest = protocol.Dest{Coord: far.Coord, Now: far.Now}
		}
	}
	return req
}

func (o *Operator) ring() {
	o.bells++
	o.Clear()
}

// Revalidate clears a buffer that no longer prefixes any option
func (o *Operator) Revalidate() {
	typed := o.buffer.String()
	if typed == "" {
		return
	}
	for _, t := range o.options() {
		if strings.HasPrefix(t.Seq, typed) {
			return
		}
	}
	o.Clear()
}

// watches reports whether a change at c can alter the operator's options
func (o *Operator) watches(c grid.Coord) bool {
	p := o.player()
	if p == nil || p.Coord == grid.NoCoord {
		return false
	}
	return o.game.Grid.Distance(p.Coord, c) <= 1
}
