package physics_test

import (
	"testing"

	"github.com/annelo/go-toast-server/internal/physics"
)

func TestBody_StepIntegration(t *testing.T) {
	b := physics.NewBody(0, 0, 10, 10)
	b.SetVelocity(100, 0)

	b.Step(0.5, 1000, 10000)

	pos := b.Position()
	if pos.X != 50 {
		t.Fatalf("horizontal integration wrong: x = %v", pos.X)
	}
	vel := b.Velocity()
	if vel.Y != 500 {
		t.Fatalf("gravity not applied: vy = %v", vel.Y)
	}
	if b.Grounded() {
		t.Fatalf("body in the air must not be grounded")
	}
}

func TestBody_GroundStop(t *testing.T) {
	groundY := 600.0
	b := physics.NewBody(0, groundY-100, 10, 10)

	// Fall long enough to hit the ground
	for i := 0; i < 100; i++ {
		b.Step(0.05, 1200, groundY)
	}

	if !b.Grounded() {
		t.Fatalf("body should rest on the ground")
	}
	pos := b.Position()
	if pos.Y != groundY-5 {
		t.Fatalf("bottom edge must sit on the ground: y = %v", pos.Y)
	}
	if b.Velocity().Y != 0 {
		t.Fatalf("vertical velocity must be zeroed on contact")
	}
}

func TestBody_NotSimulated(t *testing.T) {
	b := physics.NewBody(0, 0, 10, 10)
	b.SetVelocity(100, 100)
	b.SetSimulated(false)

	// Disabling simulation zeroes motion state
	if v := b.Velocity(); v.X != 0 || v.Y != 0 {
		t.Fatalf("velocity must be cleared: %+v", v)
	}

	b.Step(1.0, 1000, 600)
	if pos := b.Position(); pos.X != 0 || pos.Y != 0 {
		t.Fatalf("non-simulated body must not move: %+v", pos)
	}
}

func TestBody_Overlaps(t *testing.T) {
	a := physics.NewBody(0, 0, 10, 10)
	b := physics.NewBody(9, 0, 10, 10)
	c := physics.NewBody(30, 0, 10, 10)

	if !a.Overlaps(b) {
		t.Fatalf("touching bodies should overlap")
	}
	if a.Overlaps(c) {
		t.Fatalf("distant bodies should not overlap")
	}
}
