package input_test

import (
	"testing"

	"github.com/annelo/go-toast-server/internal/input"
)

// fakeDevice is an in-memory input device snapshot.
type fakeDevice struct {
	keys    map[string]bool
	buttons map[int]bool
}

func (d *fakeDevice) KeyPressed(key string) bool    { return d.keys[key] }
func (d *fakeDevice) ButtonPressed(button int) bool { return d.buttons[button] }

func TestBindings(t *testing.T) {
	dev := &fakeDevice{
		keys:    map[string]bool{"space": true},
		buttons: map[int]bool{0: true},
	}

	var jump input.Binding = input.KeyBinding{Key: "space"}
	if !jump.IsActive(dev) {
		t.Fatalf("key binding should be active")
	}

	var pad input.Binding = input.GamepadBinding{Button: 0}
	if !pad.IsActive(dev) {
		t.Fatalf("gamepad binding should be active")
	}

	miss := input.KeyBinding{Key: "x"}
	if miss.IsActive(dev) {
		t.Fatalf("unbound key should be inactive")
	}
}

func TestLine_EdgeDetection(t *testing.T) {
	var l input.Line

	// Press
	l.Update(true)
	if !l.Active() || !l.JustPressed() || l.JustReleased() {
		t.Fatalf("press frame: active=%v justPressed=%v justReleased=%v",
			l.Active(), l.JustPressed(), l.JustReleased())
	}

	// Hold: level stays, edge gone
	l.Update(true)
	if !l.Active() || l.JustPressed() {
		t.Fatalf("held line must not report a new press")
	}

	// Release
	l.Update(false)
	if l.Active() || l.JustPressed() || !l.JustReleased() {
		t.Fatalf("release frame: active=%v justPressed=%v justReleased=%v",
			l.Active(), l.JustPressed(), l.JustReleased())
	}

	// Idle
	l.Update(false)
	if l.JustReleased() {
		t.Fatalf("idle line must not report a release edge")
	}
}
