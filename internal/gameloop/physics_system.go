package gameloop

import (
	"context"
	"time"

	"github.com/annelo/go-toast-server/internal/physics"
	"github.com/annelo/go-toast-server/internal/platform"
	"github.com/annelo/go-toast-server/internal/toast"
	"github.com/annelo/go-toast-server/internal/worldinterfaces"
	"github.com/annelo/go-toast-server/pkg/protocol/game"
)

// Допуск по Y для признания платформы землёй под тостом (px).
// В бесконечном мире земля определяется близостью по Y, а не явным
// тегом платформы.
const groundContactTolerance = 8.0

// PhysicsSystem интегрирует тела и маршрутизирует события контактов в
// менеджер тостов. Работает первой в кадре: решения о пересечениях
// должны попасть в тот же кадр, что и декремент таймера.
type PhysicsSystem struct {
	deps Dependencies

	// Источник платформ земли. Системе не нужен весь менеджер чанков,
	// только снимок земли под тостом.
	ground worldinterfaces.GroundPlatformSource
}

func NewPhysicsSystem() *PhysicsSystem { return &PhysicsSystem{} }

func (p *PhysicsSystem) Name() string { return "physics" }

func (p *PhysicsSystem) Init(deps Dependencies) error {
	p.deps = deps
	p.ground = deps.Chunks
	return nil
}

func (p *PhysicsSystem) Tick(ctx context.Context, dt time.Duration) {
	dtSec := dt.Seconds()
	cfg := p.deps.Cfg

	players := p.deps.Players.GetAllPlayers()
	for _, pl := range players {
		pl.TickInput(cfg)
		pl.PhysicsBody().Step(dtSec, cfg.Gravity, cfg.GroundHeight)
	}

	for _, t := range p.deps.Toasts.Toasts() {
		body, ok := t.Body().(*physics.Body)
		if !ok {
			continue
		}

		if t.State() != toast.StateFlying {
			continue
		}

		body.Step(dtSec, cfg.Gravity, cfg.GroundHeight)

		// Сначала пытаемся отдать тост пересёкшемуся игроку, затем
		// проверяем контакт с землёй.
		caught := false
		for _, pl := range players {
			if !body.Overlaps(pl.PhysicsBody()) {
				continue
			}
			if p.deps.Toasts.AttemptPickup(t.ID(), pl) {
				p.emit(&game.WorldEvent{
					Type:     game.WorldEventToastPickedUp,
					ToastID:  t.ID(),
					PlayerID: pl.ID(),
					Position: positionOf(body),
				})
				caught = true
				break
			}
		}
		if caught {
			continue
		}

		if p.touchesGround(body) {
			if err := p.deps.Toasts.ResetOnGroundContact(t.ID()); err == nil {
				p.emit(&game.WorldEvent{
					Type:    game.WorldEventToastReset,
					ToastID: t.ID(),
				})
			}
		}
	}
}

// touchesGround проверяет контакт нижней грани тоста с платформой земли
// по предикату близости по Y.
func (p *PhysicsSystem) touchesGround(body *physics.Body) bool {
	pos := body.Position()
	_, h := body.Size()
	bottom := pos.Y + h/2

	for _, pl := range p.ground.GroundPlatforms() {
		if pos.X < pl.X-pl.Width/2 || pos.X > pl.X+pl.Width/2 {
			continue
		}
		if platform.GroundByProximity(pl, bottom, groundContactTolerance) {
			return true
		}
	}
	return false
}

func (p *PhysicsSystem) emit(ev *game.WorldEvent) {
	if p.deps.EmitWorldEvent != nil {
		p.deps.EmitWorldEvent(ev)
	}
}

func positionOf(body *physics.Body) *game.Position {
	pos := body.Position()
	return &game.Position{X: pos.X, Y: pos.Y}
}
