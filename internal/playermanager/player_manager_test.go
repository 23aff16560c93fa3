package playermanager_test

import (
	"testing"

	"github.com/annelo/go-toast-server/internal/config"
	"github.com/annelo/go-toast-server/internal/playermanager"
	"github.com/annelo/go-toast-server/pkg/protocol/game"
)

func TestPlayerManager_AddGetRemove(t *testing.T) {
	pm := playermanager.NewPlayerManager()

	id := "player1"
	name := "Alice"
	pos := game.Position{X: 10, Y: 20}

	// Add
	p, err := pm.AddPlayer(id, name, pos)
	if err != nil {
		t.Fatalf("AddPlayer returned error: %v", err)
	}
	if p.DisplayName() != name || p.Index() != 0 {
		t.Fatalf("player data mismatch: name=%s index=%d", p.DisplayName(), p.Index())
	}
	if got := p.Body().Position(); got.X != pos.X || got.Y != pos.Y {
		t.Fatalf("spawn position mismatch: %+v", got)
	}

	// Duplicate add should error
	if _, err := pm.AddPlayer(id, name, pos); err == nil {
		t.Fatalf("expected error when adding duplicate player id")
	}

	// Get
	got, err := pm.GetPlayer(id)
	if err != nil {
		t.Fatalf("GetPlayer error: %v", err)
	}
	if got != p {
		t.Fatalf("GetPlayer returned a different instance")
	}

	// Remove
	if err := pm.RemovePlayer(id); err != nil {
		t.Fatalf("RemovePlayer error: %v", err)
	}

	// Get after remove should fail
	if _, err := pm.GetPlayer(id); err == nil {
		t.Fatalf("expected error after removing player")
	}
}

func TestPlayerManager_RosterReindex(t *testing.T) {
	pm := playermanager.NewPlayerManager()

	a, _ := pm.AddPlayer("a", "A", game.Position{})
	b, _ := pm.AddPlayer("b", "B", game.Position{})
	c, _ := pm.AddPlayer("c", "C", game.Position{})

	if a.Index() != 0 || b.Index() != 1 || c.Index() != 2 {
		t.Fatalf("initial roster order wrong: %d %d %d", a.Index(), b.Index(), c.Index())
	}

	// Removing the middle player shifts everyone behind
	if err := pm.RemovePlayer("b"); err != nil {
		t.Fatalf("RemovePlayer error: %v", err)
	}
	if a.Index() != 0 || c.Index() != 1 {
		t.Fatalf("roster not reindexed: a=%d c=%d", a.Index(), c.Index())
	}

	players := pm.GetAllPlayers()
	if len(players) != 2 || players[0] != a || players[1] != c {
		t.Fatalf("GetAllPlayers order wrong")
	}

	got, err := pm.ByIndex(1)
	if err != nil || got != c {
		t.Fatalf("ByIndex(1) = %v, %v", got, err)
	}
	if _, err := pm.ByIndex(5); err == nil {
		t.Fatalf("expected error for out-of-range index")
	}
}

func TestPlayerManager_CentroidX(t *testing.T) {
	pm := playermanager.NewPlayerManager()

	if _, ok := pm.CentroidX(); ok {
		t.Fatalf("empty roster must report no centroid")
	}

	pm.AddPlayer("a", "A", game.Position{X: 100})
	pm.AddPlayer("b", "B", game.Position{X: 300})

	x, ok := pm.CentroidX()
	if !ok || x != 200 {
		t.Fatalf("CentroidX = %v, %v; want 200, true", x, ok)
	}
}

func TestPlayerData_InputSequence(t *testing.T) {
	pm := playermanager.NewPlayerManager()
	p, _ := pm.AddPlayer("a", "A", game.Position{})
	cfg := config.Default()

	p.SetInput(game.PlayerInput{Seq: 10, Right: true})
	// Stale snapshot must be dropped
	p.SetInput(game.PlayerInput{Seq: 5, Left: true})

	p.TickInput(cfg)
	if vel := p.Body().Velocity(); vel.X != cfg.MoveSpeed {
		t.Fatalf("stale input applied: vel.X = %v", vel.X)
	}
}

func TestPlayerData_DoubleJump(t *testing.T) {
	pm := playermanager.NewPlayerManager()
	p, _ := pm.AddPlayer("a", "A", game.Position{})
	cfg := config.Default()
	cfg.MaxJumps = 2

	jump := func(seq uint32, pressed bool) {
		p.SetInput(game.PlayerInput{Seq: seq, Jump: pressed})
		p.TickInput(cfg)
	}

	// First press: jump
	jump(1, true)
	if vel := p.Body().Velocity(); vel.Y != -cfg.JumpSpeed {
		t.Fatalf("first jump not applied: vel.Y = %v", vel.Y)
	}

	// Held key is not a new press
	p.Body().SetVelocity(0, 0)
	jump(2, true)
	if vel := p.Body().Velocity(); vel.Y != 0 {
		t.Fatalf("held jump key must not re-trigger")
	}

	// Release and press again: second jump allowed in the air
	jump(3, false)
	jump(4, true)
	if vel := p.Body().Velocity(); vel.Y != -cfg.JumpSpeed {
		t.Fatalf("double jump not applied: vel.Y = %v", vel.Y)
	}

	// Third press while airborne is out of jumps
	p.Body().SetVelocity(0, 0)
	jump(5, false)
	jump(6, true)
	if vel := p.Body().Velocity(); vel.Y != 0 {
		t.Fatalf("third air jump must be rejected")
	}
}

func TestPlayerData_BestX(t *testing.T) {
	pm := playermanager.NewPlayerManager()
	p, _ := pm.AddPlayer("a", "A", game.Position{X: 50})
	cfg := config.Default()

	p.TickInput(cfg)
	if p.BestX() != 50 {
		t.Fatalf("BestX = %v, want 50", p.BestX())
	}

	// Restoring a lower record must not regress
	p.SetBestX(10)
	if p.BestX() != 50 {
		t.Fatalf("SetBestX regressed the record to %v", p.BestX())
	}
	p.SetBestX(500)
	if p.BestX() != 500 {
		t.Fatalf("SetBestX failed to raise the record")
	}
}
