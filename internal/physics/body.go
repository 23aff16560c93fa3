// Package physics реализует минимальный физический слой сервера:
// AABB-тела с позицией, скоростью и гравитацией. Ядро игры общается с
// телами только через интерфейс worldinterfaces.PhysicsBody.
package physics

import (
	"sync"

	"github.com/annelo/go-toast-server/pkg/protocol/game"
)

// Body — осе-ориентированное физическое тело.
type Body struct {
	mu sync.RWMutex

	pos game.Position
	vel game.Velocity

	// Размеры тела (px)
	width  float64
	height float64

	// simulated == false означает, что позиция тела задаётся извне
	// (например, тост пристёгнут к владельцу) и интегратор его пропускает.
	simulated bool

	// grounded выставляется интегратором при контакте с землёй.
	grounded bool
}

// NewBody создаёт тело в указанной точке. Тело создаётся симулируемым.
func NewBody(x, y, width, height float64) *Body {
	return &Body{
		pos:       game.Position{X: x, Y: y},
		width:     width,
		height:    height,
		simulated: true,
	}
}

// Position возвращает текущую позицию тела.
func (b *Body) Position() game.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pos
}

// Velocity возвращает текущую скорость тела.
func (b *Body) Velocity() game.Velocity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.vel
}

// SetPosition телепортирует тело.
func (b *Body) SetPosition(x, y float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pos = game.Position{X: x, Y: y}
}

// SetVelocity задаёт скорость тела.
func (b *Body) SetVelocity(x, y float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vel = game.Velocity{X: x, Y: y}
}

// SetSimulated включает или выключает участие тела в симуляции.
func (b *Body) SetSimulated(simulated bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.simulated = simulated
	if !simulated {
		b.vel = game.Velocity{}
		b.grounded = false
	}
}

// Simulated возвращает true, если тело участвует в симуляции.
func (b *Body) Simulated() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.simulated
}

// Grounded возвращает true, если тело стоит на земле.
func (b *Body) Grounded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.grounded
}

// Size возвращает ширину и высоту тела.
func (b *Body) Size() (w, h float64) {
	return b.width, b.height
}

// Step интегрирует тело на dt секунд: применяет гравитацию и перемещает
// тело, останавливая падение на уровне groundY. Не-симулируемые тела не
// трогаются.
func (b *Body) Step(dt, gravity, groundY float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.simulated {
		return
	}

	b.vel.Y += gravity * dt
	b.pos.X += b.vel.X * dt
	b.pos.Y += b.vel.Y * dt

	// Контакт с землёй: нижняя грань тела не проходит сквозь groundY
	bottom := b.pos.Y + b.height/2
	if bottom >= groundY && b.vel.Y >= 0 {
		b.pos.Y = groundY - b.height/2
		b.vel.Y = 0
		b.grounded = true
	} else {
		b.grounded = false
	}
}

// Overlaps возвращает true, если AABB двух тел пересекаются.
func (b *Body) Overlaps(other *Body) bool {
	b.mu.RLock()
	pos, w, h := b.pos, b.width, b.height
	b.mu.RUnlock()

	other.mu.RLock()
	opos, ow, oh := other.pos, other.width, other.height
	other.mu.RUnlock()

	dx := pos.X - opos.X
	if dx < 0 {
		dx = -dx
	}
	dy := pos.Y - opos.Y
	if dy < 0 {
		dy = -dy
	}
	return dx <= (w+ow)/2 && dy <= (h+oh)/2
}
