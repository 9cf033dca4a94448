package engine

import (
	"testing"

	"github.com/wricardo/typing-arena/game/protocol"
)

func TestOperatorCompletes(t *testing.T) {
	g := newTestMirror(t)
	op := g.Operator(0)

	outcome, req := op.Type('b')
	if outcome != Completed {
		t.Fatalf("Expected %s, got %s", Completed, outcome)
	}
	if req.PlayerID != 0 || req.Dest.Coord != 1 || req.Dest.Now != 1 || req.MoveType != protocol.MoveNormal {
		t.Errorf("Unexpected request: %+v", req)
	}
	if op.Buffer() != "" {
		t.Errorf("Expected buffer to be cleared, got %q", op.Buffer())
	}
	if g.Players[0].RequestInFlight {
		t.Error("Expected the operator to leave the in-flight flag to its caller")
	}
}

func TestOperatorBoost(t *testing.T) {
	g := newTestMirror(t)
	op := g.Operator(0)
	op.Boost = true

	outcome, req := op.Type('b')
	if outcome != Completed {
		t.Fatalf("Expected %s, got %s", Completed, outcome)
	}
	if req.MoveType != protocol.MoveBoost || req.Dest.Coord != 2 {
		t.Errorf("Expected boost to tile 2, got %+v", req)
	}
}

func TestOperatorBell(t *testing.T) {
	g := newTestMirror(t)
	op := g.Operator(0)

	// tile 2 is two steps away
	outcome, _ := op.Type('c')
	if outcome != Bell {
		t.Errorf("Expected %s, got %s", Bell, outcome)
	}
	if op.Bells() != 1 {
		t.Errorf("Expected 1 bell, got %d", op.Bells())
	}
}

func TestOperatorIgnored(t *testing.T) {
	tests := []struct {
		name   string
		modify func(g *Game)
	}{
		{name: "in flight", modify: func(g *Game) { g.Players[0].RequestInFlight = true }},
		{name: "eliminated", modify: func(g *Game) { g.Players[0].Eliminated = true }},
		{name: "paused", modify: func(g *Game) { g.Status = protocol.StatusPaused }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestMirror(t)
			tt.modify(g)
			outcome, req := g.Operator(0).Type('b')
			if outcome != Ignored || req != nil {
				t.Errorf("Expected %s, got %s", Ignored, outcome)
			}
		})
	}
}

func TestOperatorPendingAndRevalidate(t *testing.T) {
	g := newTestMirror(t)
	g.Grid.TileAt(1).Seq = "bq"
	op := g.Operator(0)

	if outcome, _ := op.Type('b'); outcome != Pending {
		t.Fatalf("Expected %s, got %s", Pending, outcome)
	}
	if op.Buffer() != "b" {
		t.Fatalf("Expected buffer b, got %q", op.Buffer())
	}

	// a relabel next to the player invalidates the partial input
	g.Commit(protocol.Res{
		PlayerID: protocol.NoPlayer,
		EventID:  1,
		Tiles:    []protocol.TileMod{{Coord: 1, Now: 2, Char: "X", Seq: "x"}},
	})
	if op.Buffer() != "" {
		t.Errorf("Expected buffer to be cleared by revalidation, got %q", op.Buffer())
	}
}

func TestOperatorClearedOnMove(t *testing.T) {
	g := newTestMirror(t)
	g.Grid.TileAt(1).Seq = "bq"
	op := g.Operator(0)
	op.Type('b')

	g.Commit(protocol.Res{
		PlayerID: protocol.NoPlayer,
		EventID:  1,
		Players:  map[int]protocol.PlayerMod{0: {Health: 3, Coord: protocol.CoordPtr(5)}},
	})
	if op.Buffer() != "" {
		t.Errorf("Expected buffer to be cleared after a move, got %q", op.Buffer())
	}
}

func TestOutcomeString(t *testing.T) {
	if Bell.String() != "bell" || Outcome(42).String() != "unknown" {
		t.Errorf("Unexpected outcome names: %s, %s", Bell, Outcome(42))
	}
}
