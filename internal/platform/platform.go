// Package platform описывает платформы мира: пролёты земли, которыми
// владеют чанки, и декоративные объекты.
package platform

import (
	"math"

	"github.com/google/uuid"

	"github.com/annelo/go-toast-server/pkg/protocol/game"
)

// Виды платформ
const (
	KindGround = "ground"
	KindBush   = "bush"
	KindCloud  = "cloud"
)

// Platform — одна платформа мира. X, Y — центр (px).
type Platform struct {
	ID         string
	X, Y       float64
	Width      float64
	Height     float64
	Ground     bool // явный тег "это земля"
	Kind       string
	ChunkIndex int32
}

// NewGround создаёт платформу земли, накрывающую чанк целиком.
func NewGround(chunkIndex int32, startX, width, groundY float64) *Platform {
	return &Platform{
		ID:         uuid.New().String(),
		X:          startX + width/2,
		Y:          groundY,
		Width:      width,
		Height:     32,
		Ground:     true,
		Kind:       KindGround,
		ChunkIndex: chunkIndex,
	}
}

// NewDecor создаёт декоративную платформу. Декор не участвует в
// коллизиях и нужен только для отрисовки.
func NewDecor(chunkIndex int32, kind string, x, y float64) *Platform {
	return &Platform{
		ID:         uuid.New().String(),
		X:          x,
		Y:          y,
		Width:      64,
		Height:     24,
		Kind:       kind,
		ChunkIndex: chunkIndex,
	}
}

// ToInfo конвертирует платформу в wire-представление.
func (p *Platform) ToInfo() game.PlatformInfo {
	return game.PlatformInfo{
		ID:     p.ID,
		X:      p.X,
		Y:      p.Y,
		Width:  p.Width,
		Height: p.Height,
		Ground: p.Ground,
		Kind:   p.Kind,
	}
}

// GroundByTag — предикат земли для конечных уровней: платформа помечена
// явным тегом.
func GroundByTag(p *Platform) bool {
	return p.Ground
}

// GroundByProximity — предикат земли для бесконечного мира: Y платформы
// лежит в пределах tolerance от уровня земли. Это более свободный
// контракт, чем явный тег; оба предиката сохраняются как альтернативные
// стратегии в зависимости от режима генерации мира.
func GroundByProximity(p *Platform, groundY, tolerance float64) bool {
	return math.Abs(p.Y-groundY) <= tolerance
}
