// Package worldinterfaces содержит общие интерфейсы для избегания
// циклических зависимостей между менеджерами.
package worldinterfaces

import (
	"github.com/annelo/go-toast-server/internal/platform"
	"github.com/annelo/go-toast-server/pkg/protocol/game"
)

// PhysicsBody — контракт физического тела, которым владеет внешний
// физический слой. Ядро не наследует поведение движка, а держит ссылку
// на тело (композиция вместо наследования).
type PhysicsBody interface {
	// Position возвращает текущую позицию тела.
	Position() game.Position
	// Velocity возвращает текущую скорость тела.
	Velocity() game.Velocity
	// SetPosition телепортирует тело в указанную точку.
	SetPosition(x, y float64)
	// SetVelocity задаёт скорость тела.
	SetVelocity(x, y float64)
	// SetSimulated включает или выключает симуляцию (гравитация, коллизии).
	// Пока тело не симулируется, его позиция задаётся извне.
	SetSimulated(simulated bool)
	// Simulated возвращает true, если тело участвует в симуляции.
	Simulated() bool
}

// PlayerHandle — непрозрачная ссылка на игрока. Ядро читает только
// позицию/скорость и сравнивает идентичность по равенству ссылок.
type PlayerHandle interface {
	// ID возвращает стабильный идентификатор игрока.
	ID() string
	// DisplayName возвращает имя игрока для отображения.
	DisplayName() string
	// Body возвращает физическое тело игрока.
	Body() PhysicsBody
	// Grounded возвращает true, если игрок стоит на земле.
	Grounded() bool
}

// GroundPlatformSource отдаёт список платформ земли. Используется
// физической системой для проверки контакта летящего тоста с землёй.
type GroundPlatformSource interface {
	// GroundPlatforms возвращает снимок платформ земли.
	GroundPlatforms() []*platform.Platform
}
