package engine

import (
	"testing"

	"github.com/wricardo/typing-arena/game/grid"
	"github.com/wricardo/typing-arena/game/protocol"
	"github.com/wricardo/typing-arena/logger"
)

// newTestMirror builds a mirror with two single-player teams and labels
// every tile with a distinct letter pair.
func newTestMirror(t *testing.T) *Game {
	t.Helper()
	setup := protocol.Setup{
		GameID:      "test",
		CoordSystem: grid.Euclid2,
		Dimensions:  grid.Dimensions{Height: 5, Width: 5},
		Players: []protocol.PlayerInfo{
			{ID: 0, Name: "p0", TeamID: 0, Family: string(Human)},
			{ID: 1, Name: "p1", TeamID: 1, Family: string(Human)},
		},
		Teams: []protocol.TeamInfo{{ID: 0, Name: "Red"}, {ID: 1, Name: "Blue"}},
	}
	g, err := NewMirror(setup)
	if err != nil {
		t.Fatalf("Failed to build mirror: %v", err)
	}
	g.SetLogger(logger.Discard())

	snap := g.Snapshot()
	for i := range snap.TileLabels {
		snap.TileLabels[i] = protocol.Label{Char: string(rune('A' + i)), Seq: string(rune('a' + i))}
		snap.TileNows[i] = 1
	}
	snap.PlayerCoords = []grid.Coord{0, 12}
	snap.PlayerHealth = []int{3, 3}
	snap.Status = protocol.StatusPlaying
	g.ApplyReset(snap)
	return g
}

func TestNewMirrorUnknownTeam(t *testing.T) {
	_, err := NewMirror(protocol.Setup{
		CoordSystem: grid.Euclid2,
		Dimensions:  grid.Dimensions{Height: 5, Width: 5},
		Players:     []protocol.PlayerInfo{{ID: 0, TeamID: 3}},
	})
	if err == nil {
		t.Error("Expected an error for a player on an unknown team")
	}
}

func TestApplyReset(t *testing.T) {
	g := newTestMirror(t)

	if g.Status != protocol.StatusPlaying {
		t.Errorf("Expected status %s, got %s", protocol.StatusPlaying, g.Status)
	}
	if g.Players[1].Coord != 12 || g.Grid.TileAt(12).Occupant != 1 {
		t.Errorf("Expected player 1 on tile 12, got coord %d occupant %d", g.Players[1].Coord, g.Grid.TileAt(12).Occupant)
	}
	if seq := g.Grid.TileAt(3).Seq; seq != "d" {
		t.Errorf("Expected tile 3 seq d, got %q", seq)
	}
	if err := g.CheckOccupancy(); err != nil {
		t.Error(err)
	}
}

func TestCommitSkipsStaleLabels(t *testing.T) {
	g := newTestMirror(t)
	g.Grid.TileAt(6).Now = 5

	g.Commit(protocol.Res{
		PlayerID:  protocol.NoPlayer,
		EventID:   1,
		Tiles:     []protocol.TileMod{{Coord: 6, Now: 4, Char: "Z", Seq: "z", Health: 2}},
		PlayerNow: 0,
	})
	tile := g.Grid.TileAt(6)
	if tile.Seq != "g" || tile.Now != 5 {
		t.Errorf("Expected stale label to be skipped, got %q at now %d", tile.Seq, tile.Now)
	}
	if tile.Health != 2 {
		t.Errorf("Expected health to be applied anyway, got %d", tile.Health)
	}
}

func TestCommitMonotonicAck(t *testing.T) {
	g := newTestMirror(t)
	p := g.Players[0]
	p.ReqNow = 5

	g.Commit(protocol.Res{
		PlayerID:  0,
		PlayerNow: 4,
		EventID:   1,
		Players:   map[int]protocol.PlayerMod{0: {Health: 3, Coord: protocol.CoordPtr(1)}},
	})
	if p.ReqNow != 5 {
		t.Errorf("Expected playerNow to stay 5, got %d", p.ReqNow)
	}

	g.Commit(protocol.Res{
		PlayerID:  0,
		PlayerNow: 6,
		EventID:   2,
		Players:   map[int]protocol.PlayerMod{0: {Health: 3, Coord: protocol.CoordPtr(2)}},
	})
	if p.ReqNow != 6 {
		t.Errorf("Expected playerNow 6, got %d", p.ReqNow)
	}
	if p.Coord != 2 || g.Grid.TileAt(1).IsOccupied() || g.Grid.TileAt(0).IsOccupied() {
		t.Errorf("Expected player on tile 2 alone, got %d", p.Coord)
	}
	if err := g.CheckOccupancy(); err != nil {
		t.Error(err)
	}
}

func TestCommitSwapOrder(t *testing.T) {
	g := newTestMirror(t)

	// player 1 moves onto the tile player 0 leaves in the same result
	g.Commit(protocol.Res{
		PlayerID: protocol.NoPlayer,
		EventID:  1,
		Players: map[int]protocol.PlayerMod{
			0: {Health: 3, Coord: protocol.CoordPtr(1)},
			1: {Health: 3, Coord: protocol.CoordPtr(0)},
		},
	})
	if err := g.CheckOccupancy(); err != nil {
		t.Error(err)
	}
}

func TestCommitElimMonotonic(t *testing.T) {
	g := newTestMirror(t)

	g.Commit(protocol.Res{PlayerID: protocol.NoPlayer, EventID: 1, Teams: map[int]protocol.TeamMod{0: {ElimOrder: 2}}})
	g.Commit(protocol.Res{PlayerID: protocol.NoPlayer, EventID: 2, Teams: map[int]protocol.TeamMod{0: {ElimOrder: ElimStanding}}})
	g.Commit(protocol.Res{PlayerID: protocol.NoPlayer, EventID: 3, Teams: map[int]protocol.TeamMod{0: {ElimOrder: 1}}})

	if g.Teams[0].ElimOrder != 2 {
		t.Errorf("Expected elim order to stay 2, got %d", g.Teams[0].ElimOrder)
	}
	if g.Teams[0].Standing() {
		t.Error("Expected team to stay eliminated")
	}
}

func TestCommitRejection(t *testing.T) {
	g := newTestMirror(t)
	p := g.Players[0]
	p.RequestInFlight = true
	op := g.Operator(0)

	g.Commit(protocol.Res{PlayerID: 0, PlayerNow: 0, RejectID: 3})
	if p.RequestInFlight {
		t.Error("Expected in-flight flag to be cleared")
	}
	if p.LastRejectID != 3 {
		t.Errorf("Expected last reject id 3, got %d", p.LastRejectID)
	}
	if op.Bells() != 1 {
		t.Errorf("Expected rejection to ring the bell, got %d bells", op.Bells())
	}
}

func TestCommitDuplicateEvent(t *testing.T) {
	g := newTestMirror(t)
	res := protocol.Res{PlayerID: protocol.NoPlayer, EventID: 4}
	g.Commit(res)
	g.Commit(res)
	if g.window.High() != 4 {
		t.Errorf("Expected window high 4, got %d", g.window.High())
	}
}

func TestStandings(t *testing.T) {
	g := newTestMirror(t)
	g.Teams = append(g.Teams, &Team{ID: 2, Name: "Green", ElimOrder: 1}, &Team{ID: 3, Name: "Ghosts", ElimOrder: ElimImmortal})
	g.Teams[1].ElimOrder = 2

	standings := g.Standings()
	want := []struct {
		team int
		rank int
	}{{0, 1}, {3, 1}, {1, 3}, {2, 4}}
	if len(standings) != len(want) {
		t.Fatalf("Expected %d standings, got %d", len(want), len(standings))
	}
	for i, w := range want {
		if standings[i].TeamID != w.team || standings[i].Rank != w.rank {
			t.Errorf("Standing %d: expected team %d rank %d, got team %d rank %d",
				i, w.team, w.rank, standings[i].TeamID, standings[i].Rank)
		}
	}
}

func TestCheckLabelsDetectsConflict(t *testing.T) {
	g := newTestMirror(t)
	if err := g.CheckLabels(); err != nil {
		t.Fatalf("Expected distinct labels to pass, got %v", err)
	}
	g.Grid.TileAt(1).Seq = "ab"
	g.Grid.TileAt(2).Seq = "a"
	if err := g.CheckLabels(); err == nil {
		t.Error("Expected prefix-related neighbors to fail")
	}
}

func TestCheckOccupancyDetectsMismatch(t *testing.T) {
	g := newTestMirror(t)
	g.Grid.TileAt(5).Occupant = 1
	if err := g.CheckOccupancy(); err == nil {
		t.Error("Expected a stray occupant to fail")
	}
}
