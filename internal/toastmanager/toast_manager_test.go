package toastmanager_test

import (
	"testing"
	"time"

	"github.com/annelo/go-toast-server/internal/config"
	"github.com/annelo/go-toast-server/internal/physics"
	"github.com/annelo/go-toast-server/internal/toast"
	"github.com/annelo/go-toast-server/internal/toastmanager"
	"github.com/annelo/go-toast-server/internal/worldinterfaces"
)

type fakePlayer struct {
	id   string
	body *physics.Body
}

func newFakePlayer(id string, x, y float64) *fakePlayer {
	return &fakePlayer{id: id, body: physics.NewBody(x, y, 32, 48)}
}

func (f *fakePlayer) ID() string                        { return f.id }
func (f *fakePlayer) DisplayName() string               { return f.id }
func (f *fakePlayer) Body() worldinterfaces.PhysicsBody { return f.body }
func (f *fakePlayer) Grounded() bool                    { return f.body.Grounded() }

type fixture struct {
	cfg   *config.Config
	now   time.Time
	tm    *toastmanager.ToastManager
	alice *fakePlayer
	bob   *fakePlayer
}

func newFixture() *fixture {
	f := &fixture{
		cfg:   config.Default(),
		now:   time.Unix(1000, 0),
		alice: newFakePlayer("alice", 0, 0),
		bob:   newFakePlayer("bob", 100, 0),
	}
	f.tm = toastmanager.NewToastManager(f.cfg, func() time.Time { return f.now })
	f.tm.SetRoster([]worldinterfaces.PlayerHandle{f.alice, f.bob})
	return f
}

func (f *fixture) createToast(t *testing.T, id string, ownerIndex int) *toast.Toast {
	t.Helper()
	ts, err := f.tm.CreateToast(id, ownerIndex, physics.NewBody(0, 0, 24, 24))
	if err != nil {
		t.Fatalf("CreateToast(%s) error: %v", id, err)
	}
	return ts
}

func TestToastManager_CreateToast(t *testing.T) {
	f := newFixture()

	ts := f.createToast(t, "toast-1", 1)
	if ts.Owner() != f.bob {
		t.Fatalf("toast should start on the requested owner")
	}

	// Duplicate id
	if _, err := f.tm.CreateToast("toast-1", 0, physics.NewBody(0, 0, 24, 24)); err == nil {
		t.Fatalf("expected error for duplicate toast id")
	}
	// Owner index out of range
	if _, err := f.tm.CreateToast("toast-2", 5, physics.NewBody(0, 0, 24, 24)); err != toastmanager.ErrInvalidOwnerIndex {
		t.Fatalf("expected ErrInvalidOwnerIndex, got %v", err)
	}
	// Nil body propagates the toast constructor error
	if _, err := f.tm.CreateToast("toast-3", 0, nil); err != toast.ErrNilBody {
		t.Fatalf("expected ErrNilBody, got %v", err)
	}
}

func TestToastManager_SinglePossession(t *testing.T) {
	f := newFixture()

	t1 := f.createToast(t, "toast-1", 0)
	f.createToast(t, "toast-2", 1)

	// Eject only toast-1 from alice
	t1.Update(f.cfg.TimeToEject+0.1, nil)
	f.now = f.now.Add(time.Second)

	if t1.State() != toast.StateFlying {
		t.Fatalf("toast-1 should be flying")
	}

	// Bob already owns toast-2 and must not grab a second toast even
	// though the toast's own guards would allow it
	if f.tm.AttemptPickup("toast-1", f.bob) {
		t.Fatalf("player holding a toast must not pick up another")
	}
	if t1.Owner() != nil {
		t.Fatalf("failed pickup must not mutate the toast")
	}

	// Unknown toast id is a silent no-op
	if f.tm.AttemptPickup("nope", f.bob) {
		t.Fatalf("unknown toast id should return false")
	}
}

func TestToastManager_ResetOnGroundContact(t *testing.T) {
	f := newFixture()

	t1 := f.createToast(t, "toast-1", 1)
	f.tm.Update(f.cfg.TimeToEject + 0.1) // eject from bob

	if err := f.tm.ResetOnGroundContact("toast-1"); err != nil {
		t.Fatalf("ResetOnGroundContact error: %v", err)
	}
	if t1.Owner() != f.alice {
		t.Fatalf("ground contact must reset to the default owner (index 0)")
	}

	// Back-to-back resets are idempotent: same owner, full countdown
	if err := f.tm.ResetOnGroundContact("toast-1"); err != nil {
		t.Fatalf("second ResetOnGroundContact error: %v", err)
	}
	if t1.Owner() != f.alice {
		t.Fatalf("repeated reset must keep the toast on the same owner")
	}
	if t1.Remaining() != f.cfg.TimeToEject {
		t.Fatalf("repeated reset must restore the full countdown, got %v", t1.Remaining())
	}

	if err := f.tm.ResetOnGroundContact("nope"); err != toastmanager.ErrToastNotFound {
		t.Fatalf("expected ErrToastNotFound, got %v", err)
	}
}

func TestToastManager_ResetSkipsBusyDefaultOwner(t *testing.T) {
	f := newFixture()

	t1 := f.createToast(t, "toast-1", 0)
	t2 := f.createToast(t, "toast-2", 1)

	// Eject only toast-2; alice keeps holding toast-1
	t2.Update(f.cfg.TimeToEject+0.1, nil)

	if err := f.tm.ResetOnGroundContact("toast-2"); err != nil {
		t.Fatalf("ResetOnGroundContact error: %v", err)
	}
	if t2.Owner() != f.bob {
		t.Fatalf("reset must land on the first free player, got %v", t2.Owner())
	}
	if !t1.OwnedBy(f.alice) {
		t.Fatalf("toast-1 must stay with alice")
	}
	if t2.OwnedBy(f.alice) {
		t.Fatalf("default owner must never end up with two toasts")
	}
}

func TestToastManager_OutOfBoundsResetSkipsBusyDefaultOwner(t *testing.T) {
	f := newFixture()

	f.createToast(t, "toast-1", 0)
	t2 := f.createToast(t, "toast-2", 1)

	t2.Update(f.cfg.TimeToEject+0.1, nil) // toast-2 flying
	t2.Body().SetPosition(f.cfg.WorldBoundsX+f.cfg.OutOfBoundsSlack+1, 0)

	events := f.tm.Update(0.05)

	found := false
	for _, ev := range events {
		if ev.ToastID == "toast-2" && ev.Type == toast.EventReset {
			found = true
			if ev.Player != worldinterfaces.PlayerHandle(f.bob) {
				t.Fatalf("out-of-bounds reset must target the free player, got %v", ev.Player)
			}
		}
	}
	if !found {
		t.Fatalf("expected a reset event for toast-2, got %+v", events)
	}
	if t2.Owner() != f.bob {
		t.Fatalf("toast-2 should be owned by bob after the reset")
	}
}

func TestToastManager_RemoveToast(t *testing.T) {
	f := newFixture()

	f.createToast(t, "toast-1", 0)
	if err := f.tm.RemoveToast("toast-1"); err != nil {
		t.Fatalf("RemoveToast error: %v", err)
	}
	if len(f.tm.Toasts()) != 0 {
		t.Fatalf("toast list should be empty after removal")
	}
	if err := f.tm.RemoveToast("toast-1"); err != toastmanager.ErrToastNotFound {
		t.Fatalf("expected ErrToastNotFound, got %v", err)
	}
}

func TestToastManager_TimerSnapshot(t *testing.T) {
	f := newFixture()

	f.createToast(t, "toast-1", 0)
	t2 := f.createToast(t, "toast-2", 1)
	t2.Update(f.cfg.TimeToEject+0.1, nil) // toast-2 flying

	snapshot := f.tm.TimerSnapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected two timers, got %d", len(snapshot))
	}
	if !snapshot[0].Owned || snapshot[0].OwnerName != "alice" {
		t.Fatalf("toast-1 snapshot mismatch: %+v", snapshot[0])
	}
	if snapshot[1].Owned {
		t.Fatalf("toast-2 should be reported as flying: %+v", snapshot[1])
	}
}

func TestToastManager_UpdateCollectsEvents(t *testing.T) {
	f := newFixture()

	f.createToast(t, "toast-1", 0)
	f.createToast(t, "toast-2", 1)

	events := f.tm.Update(f.cfg.TimeToEject + 0.1)

	ejected := map[string]bool{}
	for _, ev := range events {
		if ev.Type == toast.EventEjected {
			ejected[ev.ToastID] = true
		}
	}
	if !ejected["toast-1"] || !ejected["toast-2"] {
		t.Fatalf("both toasts should eject, got %+v", events)
	}
}
