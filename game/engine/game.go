package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/wricardo/typing-arena/game/grid"
	"github.com/wricardo/typing-arena/game/protocol"
	"github.com/wricardo/typing-arena/logger"
)

// Game is a mirror of one arena: grid, players and teams, mutated only by
// Commit and ApplyReset. The authoritative Manager keeps one too. A Game is
// not safe for concurrent use.
type Game struct {
	Grid    *grid.Grid
	Players []*Player
	Teams   []*Team
	Status  protocol.Status

	window    EventWindow
	operators map[int]*Operator
	log       *slog.Logger
}

// NewGame wraps an existing grid and roster
func NewGame(g *grid.Grid, players []*Player, teams []*Team) *Game {
	return &Game{
		Grid:      g,
		Players:   players,
		Teams:     teams,
		Status:    protocol.StatusPaused,
		operators: make(map[int]*Operator),
		log:       logger.Get(),
	}
}

// NewMirror builds an empty mirror from a setup message. Dynamic state
// arrives with the next ResetSnapshot.
func NewMirror(setup protocol.Setup) (*Game, error) {
	g, err := grid.New(setup.CoordSystem, setup.Dimensions, rand.New(rand.NewSource(int64(len(setup.Players)))))
	if err != nil {
		return nil, fmt.Errorf("mirror grid: %w", err)
	}

	teams := make([]*Team, len(setup.Teams))
	for i, ti := range setup.Teams {
		teams[i] = &Team{ID: ti.ID, Name: ti.Name}
		if ti.Immortal {
			teams[i].ElimOrder = ElimImmortal
		}
	}
	players := make([]*Player, len(setup.Players))
	for i, pi := range setup.Players {
		if pi.TeamID < 0 || pi.TeamID >= len(teams) {
			return nil, fmt.Errorf("mirror: player %d has unknown team %d", pi.ID, pi.TeamID)
		}
		players[i] = &Player{ID: pi.ID, Name: pi.Name, TeamID: pi.TeamID, Family: Family(pi.Family), Coord: grid.NoCoord}
		teams[pi.TeamID].Members = append(teams[pi.TeamID].Members, pi.ID)
	}
	return NewGame(g, players, teams), nil
}

// SetLogger replaces the mirror's logger
func (g *Game) SetLogger(l *slog.Logger) { g.log = l }

// Player looks up a player by id
func (g *Game) Player(id int) (*Player, bool) {
	if id < 0 || id >= len(g.Players) {
		return nil, false
	}
	return g.Players[id], true
}

// PlayerAt returns the occupant of c, or nil
func (g *Game) PlayerAt(c grid.Coord) *Player {
	t := g.Grid.TileAt(c)
	if !t.IsOccupied() {
		return nil
	}
	p, _ := g.Player(t.Occupant)
	return p
}

// Operator returns the operator bound to playerID, creating it on first use
func (g *Game) Operator(playerID int) *Operator {
	if op, ok := g.operators[playerID]; ok {
		return op
	}
	op := &Operator{PlayerID: playerID, game: g}
	g.operators[playerID] = op
	return op
}

// Commit applies a Res. Tile labels older than the local view are skipped;
// tile health is always overwritten. Player coordinates move occupancy
// first so a player is always wherever its tile says it is.
func (g *Game) Commit(res protocol.Res) {
	var requester *Player
	if res.PlayerID != protocol.NoPlayer {
		p, ok := g.Player(res.PlayerID)
		if !ok {
			g.log.Warn("commit for unknown player", "player", res.PlayerID)
			return
		}
		requester = p
	}

	if res.IsRejection() {
		if requester != nil {
			requester.RequestInFlight = false
			requester.LastRejectID = res.RejectID
			if op, ok := g.operators[requester.ID]; ok {
				op.ring()
			}
		}
		return
	}

	if g.window.Observe(res.EventID) {
		g.log.Debug("duplicate event", "event", res.EventID)
	}

	touched := make([]grid.Coord, 0, len(res.Tiles))
	for _, mod := range res.Tiles {
		t := g.Grid.TileAt(mod.Coord)
		if mod.Now >= t.Now {
			t.Now, t.Char, t.Seq = mod.Now, mod.Char, mod.Seq
			touched = append(touched, t.Coord)
		}
		t.Health = mod.Health
	}

	ids := make([]int, 0, len(res.Players))
	for id := range res.Players {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	moved := map[int]bool{}
	for _, id := range ids {
		p, ok := g.Player(id)
		if !ok {
			g.log.Warn("commit mod for unknown player", "player", id)
			continue
		}
		mod := res.Players[id]
		p.Health, p.Score = mod.Health, mod.Score
		if mod.Coord != nil && *mod.Coord != p.Coord {
			g.relocate(p, *mod.Coord)
			moved[id] = true
		}
		if mod.Eliminated {
			p.Eliminated = true
			p.RequestInFlight = false
		}
	}

	if requester != nil {
		requester.RequestInFlight = false
		if res.PlayerNow >= requester.ReqNow {
			requester.ReqNow = res.PlayerNow
		} else {
			g.log.Warn("stale acknowledgment ignored", "player", requester.ID, "have", requester.ReqNow, "got", res.PlayerNow)
		}
	}

	for id, mod := range res.Teams {
		if id < 0 || id >= len(g.Teams) {
			continue
		}
		team := g.Teams[id]
		if team.Immortal() || mod.ElimOrder == ElimStanding || mod.ElimOrder < team.ElimOrder {
			continue
		}
		team.ElimOrder = mod.ElimOrder
	}

	for id, op := range g.operators {
		if moved[id] {
			op.Clear()
			continue
		}
		for _, c := range touched {
			if op.watches(c) {
				op.Revalidate()
				break
			}
		}
	}
}

// relocate moves occupancy before the player's own coordinate
func (g *Game) relocate(p *Player, to grid.Coord) {
	if p.Coord != grid.NoCoord {
		if old := g.Grid.TileAt(p.Coord); old.Occupant == p.ID {
			old.Occupant = grid.NoOccupant
		}
	}
	if to != grid.NoCoord {
		g.Grid.TileAt(to).Occupant = p.ID
	}
	p.Coord = to
}

// ApplyReset writes a full-state snapshot without validation
func (g *Game) ApplyReset(s protocol.ResetSnapshot) {
	g.Status = s.Status
	g.Grid.Reset()

	tiles := g.Grid.Tiles()
	for i := range tiles {
		if i < len(s.TileLabels) {
			tiles[i].Char, tiles[i].Seq = s.TileLabels[i].Char, s.TileLabels[i].Seq
		}
		if i < len(s.TileNows) {
			tiles[i].Now = s.TileNows[i]
		}
		if i < len(s.TileHealth) {
			tiles[i].Health = s.TileHealth[i]
		}
	}

	for i, p := range g.Players {
		p.RequestInFlight = false
		p.Coord = grid.NoCoord
		if i < len(s.PlayerCoords) && s.PlayerCoords[i] != grid.NoCoord {
			p.Coord = g.Grid.Normalize(s.PlayerCoords[i])
			g.Grid.TileAt(p.Coord).Occupant = p.ID
		}
		if i < len(s.PlayerNows) {
			p.ReqNow = s.PlayerNows[i]
		}
		if i < len(s.PlayerHealth) {
			p.Health = s.PlayerHealth[i]
		}
		if i < len(s.PlayerScores) {
			p.Score = s.PlayerScores[i]
		}
		if i < len(s.Eliminated) {
			p.Eliminated = s.Eliminated[i]
		}
	}

	for i, t := range g.Teams {
		if i < len(s.TeamElims) {
			t.ElimOrder = s.TeamElims[i]
		}
	}
	for _, op := range g.operators {
		op.Clear()
	}
}

// Snapshot serializes the mirror's full state in arena order
func (g *Game) Snapshot() protocol.ResetSnapshot {
	tiles := g.Grid.Tiles()
	s := protocol.ResetSnapshot{
		Status:       g.Status,
		PlayerCoords: make([]grid.Coord, len(g.Players)),
		PlayerNows:   make([]int, len(g.Players)),
		PlayerHealth: make([]int, len(g.Players)),
		PlayerScores: make([]int, len(g.Players)),
		Eliminated:   make([]bool, len(g.Players)),
		TileLabels:   make([]protocol.Label, len(tiles)),
		TileNows:     make([]int, len(tiles)),
		TileHealth:   make([]int, len(tiles)),
		TeamElims:    make([]int, len(g.Teams)),
	}
	for i, p := range g.Players {
		s.PlayerCoords[i] = p.Coord
		s.PlayerNows[i] = p.ReqNow
		s.PlayerHealth[i] = p.Health
		s.PlayerScores[i] = p.Score
		s.Eliminated[i] = p.Eliminated
	}
	for i := range tiles {
		s.TileLabels[i] = protocol.Label{Char: tiles[i].Char, Seq: tiles[i].Seq}
		s.TileNows[i] = tiles[i].Now
		s.TileHealth[i] = tiles[i].Health
	}
	for i, t := range g.Teams {
		s.TeamElims[i] = t.ElimOrder
	}
	return s
}

// Standings ranks teams: standing teams share first place, eliminated teams
// follow in reverse elimination order.
func (g *Game) Standings() []protocol.Standing {
	out := make([]protocol.Standing, len(g.Teams))
	for i, t := range g.Teams {
		out[i] = protocol.Standing{TeamID: t.ID, Name: t.Name, ElimOrder: t.ElimOrder}
	}
	key := func(s protocol.Standing) int {
		if s.ElimOrder == ElimStanding || s.ElimOrder == ElimImmortal {
			return int(^uint(0) >> 1)
		}
		return s.ElimOrder
	}
	sort.SliceStable(out, func(i, j int) bool { return key(out[i]) > key(out[j]) })
	for i := range out {
		out[i].Rank = i + 1
		if i > 0 && key(out[i]) == key(out[i-1]) {
			out[i].Rank = out[i-1].Rank
		}
	}
	return out
}

// CheckOccupancy verifies that tiles and players agree on every position
func (g *Game) CheckOccupancy() error {
	seen := make(map[grid.Coord]int)
	for _, p := range g.Players {
		if p.Coord == grid.NoCoord {
			continue
		}
		if other, dup := seen[p.Coord]; dup {
			return fmt.Errorf("players %d and %d share tile %d", other, p.ID, p.Coord)
		}
		seen[p.Coord] = p.ID
		if occ := g.Grid.TileAt(p.Coord).Occupant; occ != p.ID {
			return fmt.Errorf("player %d at %d but tile holds %d", p.ID, p.Coord, occ)
		}
	}
	for _, t := range g.Grid.Tiles() {
		if !t.IsOccupied() {
			continue
		}
		if id, ok := seen[t.Coord]; !ok || id != t.Occupant {
			return fmt.Errorf("tile %d holds %d but no player stands there", t.Coord, t.Occupant)
		}
	}
	return nil
}

// CheckLabels verifies that no two tiles reachable from a common source have
// prefix-related sequences
func (g *Game) CheckLabels() error {
	for c := 0; c < g.Grid.Len(); c++ {
		dests := g.Grid.TileDestsFrom(grid.Coord(c), 1)
		for i, a := range dests {
			for _, b := range dests[i+1:] {
				if a.Seq == "" || b.Seq == "" {
					continue
				}
				if len(a.Seq) <= len(b.Seq) && b.Seq[:len(a.Seq)] == a.Seq ||
					len(b.Seq) < len(a.Seq) && a.Seq[:len(b.Seq)] == b.Seq {
					return fmt.Errorf("tiles %d (%q) and %d (%q) conflict from source %d", a.Coord, a.Seq, b.Coord, b.Seq, c)
				}
			}
		}
	}
	return nil
}
