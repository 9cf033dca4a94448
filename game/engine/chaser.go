package engine

import (
	"time"

	"github.com/wricardo/typing-arena/game/grid"
	"github.com/wricardo/typing-arena/game/protocol"
)

// wanderRadius bounds the random target of an idle chaser
const wanderRadius = 3

// Intent is what a chaser decided to do this tick
type Intent string

const (
	IntentFlee   Intent = "flee"
	IntentChase  Intent = "chase"
	IntentWander Intent = "wander"
)

// Interval is the delay between two moves
func (c ChaserParams) Interval() time.Duration {
	if c.MovesPerSecond <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / c.MovesPerSecond)
}

// nearestPrey returns the closest standing opponent of p
func nearestPrey(g *Game, p *Player) (*Player, int) {
	var prey *Player
	best := -1
	for _, other := range g.Players {
		if other.TeamID == p.TeamID || other.Eliminated || other.Coord == grid.NoCoord {
			continue
		}
		d := g.Grid.Distance(p.Coord, other.Coord)
		if best < 0 || d < best {
			prey, best = other, d
		}
	}
	return prey, best
}

// Think picks the chaser's next request against the mirror g. It returns
// nil when the bot has nowhere to go.
func (c ChaserParams) Think(g *Game, p *Player, boostCost int) (*protocol.Req, Intent) {
	if p.Eliminated || p.Coord == grid.NoCoord {
		return nil, IntentWander
	}

	intent := IntentWander
	var step grid.Coord
	prey, d := nearestPrey(g, p)
	switch {
	case prey != nil && d <= c.FearDistance && prey.Health > p.Health:
		intent = IntentFlee
		step = g.Grid.GetUntAwayFrom(prey.Coord, p.Coord)
	case prey != nil && d <= c.BloodThirstDistance:
		intent = IntentChase
		step = g.Grid.GetUntToward(p.Coord, prey.Coord)
	default:
		step = g.Grid.GetUntToward(p.Coord, g.Grid.GetRandomCoordAround(p.Coord, wanderRadius))
	}
	if step == p.Coord {
		return nil, intent
	}

	dest := g.Grid.TileAt(step)
	req := &protocol.Req{
		PlayerID:  p.ID,
		PlayerNow: p.ReqNow,
		MoveType:  protocol.MoveNormal,
		Dest:      protocol.Dest{Coord: dest.Coord, Now: dest.Now},
	}

	// spend spare health on a boost when the gap is worth closing or opening
	wantBoost := (intent == IntentChase && d > 2) || intent == IntentFlee
	if wantBoost && p.Health-boostCost >= c.HealthReserve && p.Health >= boostCost {
		far := g.Grid.TileAt(g.Grid.Extend(p.Coord, step))
		if far.Coord != p.Coord && far.Coord != step && !far.IsOccupied() {
			req.MoveType = protocol.MoveBoost
			req.Dest = protocol.Dest{Coord: far.Coord, Now: far.Now}
		}
	}
	return req, intent
}
