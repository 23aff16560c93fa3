package gameloop_test

import (
	"context"
	"testing"
	"time"

	"github.com/annelo/go-toast-server/internal/chunkmanager"
	"github.com/annelo/go-toast-server/internal/config"
	"github.com/annelo/go-toast-server/internal/gameloop"
	"github.com/annelo/go-toast-server/internal/physics"
	"github.com/annelo/go-toast-server/internal/playermanager"
	"github.com/annelo/go-toast-server/internal/toast"
	"github.com/annelo/go-toast-server/internal/toastmanager"
	"github.com/annelo/go-toast-server/internal/worldinterfaces"
	"github.com/annelo/go-toast-server/pkg/protocol/game"
)

const tick = 50 * time.Millisecond

type world struct {
	cfg     *config.Config
	now     time.Time
	players *playermanager.PlayerManager
	toasts  *toastmanager.ToastManager
	chunks  *chunkmanager.ChunkManager

	events []*game.WorldEvent
	timers []*game.ToastTimersUpdate

	physics *gameloop.PhysicsSystem
	toastsS *gameloop.ToastSystem
	stream  *gameloop.StreamSystem
	round   *gameloop.RoundSystem
}

func newWorld(t *testing.T) *world {
	t.Helper()
	w := &world{
		cfg:     config.Default(),
		players: playermanager.NewPlayerManager(),
	}
	w.now = time.Unix(1000, 0)
	w.toasts = toastmanager.NewToastManager(w.cfg, func() time.Time { return w.now })
	w.chunks = chunkmanager.NewChunkManager(w.cfg, 42)
	w.chunks.Initialize()

	deps := gameloop.Dependencies{
		Cfg:     w.cfg,
		Players: w.players,
		Toasts:  w.toasts,
		Chunks:  w.chunks,
		EmitWorldEvent: func(ev *game.WorldEvent) {
			w.events = append(w.events, ev)
		},
		EmitToastTimers: func(u *game.ToastTimersUpdate) {
			w.timers = append(w.timers, u)
		},
	}

	w.physics = gameloop.NewPhysicsSystem()
	w.toastsS = gameloop.NewToastSystem()
	w.stream = gameloop.NewStreamSystem()
	w.round = gameloop.NewRoundSystem()
	for _, s := range []gameloop.System{w.physics, w.toastsS, w.stream, w.round} {
		if err := s.Init(deps); err != nil {
			t.Fatalf("init %s: %v", s.Name(), err)
		}
	}
	return w
}

// step runs one full frame in the canonical system order.
func (w *world) step() {
	ctx := context.Background()
	w.physics.Tick(ctx, tick)
	w.toastsS.Tick(ctx, tick)
	w.stream.Tick(ctx, tick)
	w.round.Tick(ctx, tick)
}

func (w *world) addPlayer(t *testing.T, id string, x float64) *playermanager.PlayerData {
	t.Helper()
	p, err := w.players.AddPlayer(id, id, game.Position{X: x, Y: w.cfg.GroundHeight - 100})
	if err != nil {
		t.Fatalf("AddPlayer(%s): %v", id, err)
	}
	w.syncRoster()
	return p
}

func (w *world) syncRoster() {
	players := w.players.GetAllPlayers()
	handles := make([]worldinterfaces.PlayerHandle, len(players))
	for i, p := range players {
		handles[i] = p
	}
	w.toasts.SetRoster(handles)
}

func (w *world) eventTypes() []string {
	types := make([]string, len(w.events))
	for i, ev := range w.events {
		types[i] = ev.Type
	}
	return types
}

func hasEvent(w *world, eventType string) bool {
	for _, ev := range w.events {
		if ev.Type == eventType {
			return true
		}
	}
	return false
}

func TestSystems_EjectIsBroadcast(t *testing.T) {
	w := newWorld(t)
	w.addPlayer(t, "alice", 0)

	body := physics.NewBody(0, 0, 24, 24)
	if _, err := w.toasts.CreateToast("toast-1", 0, body); err != nil {
		t.Fatalf("CreateToast: %v", err)
	}

	// Run past the full countdown
	frames := int(w.cfg.TimeToEject/tick.Seconds()) + 2
	for i := 0; i < frames; i++ {
		w.step()
	}

	if !hasEvent(w, game.WorldEventToastWarning) {
		t.Fatalf("warning should have been broadcast, got %v", w.eventTypes())
	}
	if !hasEvent(w, game.WorldEventToastEjected) {
		t.Fatalf("eject should have been broadcast, got %v", w.eventTypes())
	}
	if len(w.timers) == 0 {
		t.Fatalf("timer snapshots should have been emitted")
	}
}

func TestSystems_PickupOnOverlap(t *testing.T) {
	w := newWorld(t)
	w.addPlayer(t, "alice", 0)
	bob := w.addPlayer(t, "bob", 500)

	body := physics.NewBody(0, 0, 24, 24)
	if _, err := w.toasts.CreateToast("toast-1", 0, body); err != nil {
		t.Fatalf("CreateToast: %v", err)
	}
	ts, _ := w.toasts.GetToast("toast-1")

	// Eject from alice, then park the flying toast on top of bob. The
	// wall clock moves past the pickup cooldown.
	ts.Update(w.cfg.TimeToEject+0.1, nil)
	w.now = w.now.Add(time.Second)
	bobPos := bob.Body().Position()
	body.SetPosition(bobPos.X, bobPos.Y)
	body.SetVelocity(0, 0)

	w.step()

	if ts.Owner() != bob {
		t.Fatalf("overlap with bob should hand over the toast, owner=%v", ts.Owner())
	}
	if !hasEvent(w, game.WorldEventToastPickedUp) {
		t.Fatalf("pickup should have been broadcast, got %v", w.eventTypes())
	}
}

func TestSystems_GroundContactResets(t *testing.T) {
	w := newWorld(t)
	alice := w.addPlayer(t, "alice", 0)
	w.addPlayer(t, "bob", 2000)

	body := physics.NewBody(1000, w.cfg.GroundHeight-200, 24, 24)
	if _, err := w.toasts.CreateToast("toast-1", 1, body); err != nil {
		t.Fatalf("CreateToast: %v", err)
	}
	ts, _ := w.toasts.GetToast("toast-1")

	// Eject from bob and let the toast fall onto the ground, far from
	// both players so nobody intercepts it
	ts.Update(w.cfg.TimeToEject+0.1, nil)
	body.SetPosition(1000, w.cfg.GroundHeight-200)
	body.SetVelocity(0, 0)

	for i := 0; i < 40 && ts.State() == toast.StateFlying; i++ {
		w.step()
	}

	if ts.Owner() != alice {
		t.Fatalf("ground contact must reset the toast to the default owner")
	}
	if !hasEvent(w, game.WorldEventToastReset) {
		t.Fatalf("reset should have been broadcast, got %v", w.eventTypes())
	}
}

func TestSystems_StreamFollowsCentroid(t *testing.T) {
	w := newWorld(t)
	p := w.addPlayer(t, "alice", 0)

	var before, after []int32
	// Re-init stream system with hooks wired
	deps := gameloop.Dependencies{
		Cfg:     w.cfg,
		Players: w.players,
		Toasts:  w.toasts,
		Chunks:  w.chunks,
		Hooks: gameloop.ChunkHooks{
			Before: func(index int32) { before = append(before, index) },
			After:  func(index int32) { after = append(after, index) },
		},
	}
	stream := gameloop.NewStreamSystem()
	if err := stream.Init(deps); err != nil {
		t.Fatalf("init stream: %v", err)
	}

	// Teleport the player five chunks to the right
	p.Body().SetPosition(w.cfg.ChunkWidth*5.5, w.cfg.GroundHeight-100)
	stream.Tick(context.Background(), tick)

	if len(before) == 0 || before[0] != 5 {
		t.Fatalf("before hook should fire with the current chunk index, got %v", before)
	}
	if len(after) == 0 {
		t.Fatalf("after hook should fire for each generated chunk")
	}
	if _, err := w.chunks.GetChunk(7); err != nil {
		t.Fatalf("window should reach chunk 7: %v", err)
	}
	if _, err := w.chunks.GetChunk(-2); err == nil {
		t.Fatalf("distant chunk should have been evicted")
	}
}

func TestRoundSystem_Elapsed(t *testing.T) {
	w := newWorld(t)

	for i := 0; i < 100; i++ {
		w.round.Tick(context.Background(), tick)
	}

	if w.round.Elapsed() != 100*tick {
		t.Fatalf("Elapsed = %v, want %v", w.round.Elapsed(), 100*tick)
	}
	if !hasEvent(w, game.WorldEventRoundTime) {
		t.Fatalf("round time should have been broadcast at tick 100")
	}
}
