package playermanager

import (
	"errors"
	"sync"

	"github.com/annelo/go-toast-server/internal/config"
	"github.com/annelo/go-toast-server/internal/input"
	"github.com/annelo/go-toast-server/internal/physics"
	"github.com/annelo/go-toast-server/internal/worldinterfaces"
	"github.com/annelo/go-toast-server/pkg/protocol/game"
)

// Размеры тела игрока (px)
const (
	playerWidth  = 32
	playerHeight = 48
)

// PlayerData содержит информацию об игроке и его состояние прыжков.
type PlayerData struct {
	id    string
	name  string
	index int

	body *physics.Body

	// Последний снимок ввода от клиента. Пишется обработчиком сообщений,
	// читается физическим тиком.
	inputMu   sync.Mutex
	lastInput game.PlayerInput

	// Edge-детекция прыжка и счётчик прыжков до приземления
	jumpLine  input.Line
	jumpsUsed int

	// Дистанционная статистика (для сохранения рекордов)
	bestX float64
}

// ID возвращает стабильный идентификатор игрока.
func (p *PlayerData) ID() string { return p.id }

// DisplayName возвращает имя игрока.
func (p *PlayerData) DisplayName() string { return p.name }

// Index возвращает позицию игрока в ростере (0 — владелец сброса).
func (p *PlayerData) Index() int { return p.index }

// Body возвращает физическое тело игрока.
func (p *PlayerData) Body() worldinterfaces.PhysicsBody { return p.body }

// PhysicsBody возвращает конкретное тело для интегратора.
func (p *PlayerData) PhysicsBody() *physics.Body { return p.body }

// Grounded возвращает true, если игрок стоит на земле.
func (p *PlayerData) Grounded() bool { return p.body.Grounded() }

// BestX возвращает максимальную достигнутую X-координату.
func (p *PlayerData) BestX() float64 {
	p.inputMu.Lock()
	defer p.inputMu.Unlock()
	return p.bestX
}

// SetBestX восстанавливает рекорд из хранилища.
func (p *PlayerData) SetBestX(x float64) {
	p.inputMu.Lock()
	defer p.inputMu.Unlock()
	if x > p.bestX {
		p.bestX = x
	}
}

// SetInput сохраняет последний снимок ввода от клиента.
func (p *PlayerData) SetInput(in game.PlayerInput) {
	p.inputMu.Lock()
	defer p.inputMu.Unlock()
	// Отбрасываем устаревшие снимки по номеру последовательности
	if in.Seq != 0 && in.Seq < p.lastInput.Seq {
		return
	}
	p.lastInput = in
}

// TickInput применяет сохранённый ввод к телу игрока. Вызывается строго
// один раз за тик из физической системы, до интеграции тела.
func (p *PlayerData) TickInput(cfg *config.Config) {
	p.inputMu.Lock()
	in := p.lastInput
	p.inputMu.Unlock()

	vel := p.body.Velocity()

	vx := 0.0
	if in.Left {
		vx -= cfg.MoveSpeed
	}
	if in.Right {
		vx += cfg.MoveSpeed
	}

	if p.body.Grounded() {
		p.jumpsUsed = 0
	}

	vy := vel.Y
	p.jumpLine.Update(in.Jump)
	if p.jumpLine.JustPressed() && p.jumpsUsed < cfg.MaxJumps {
		vy = -cfg.JumpSpeed
		p.jumpsUsed++
	}

	p.body.SetVelocity(vx, vy)

	if pos := p.body.Position(); pos.X > p.bestX {
		p.inputMu.Lock()
		p.bestX = pos.X
		p.inputMu.Unlock()
	}
}

// PlayerManager управляет ростером игроков. Порядок добавления определяет
// приоритет отображения; игрок с индексом 0 — владелец сброса тоста.
type PlayerManager struct {
	players map[string]*PlayerData
	order   []*PlayerData
	mu      sync.RWMutex
}

// NewPlayerManager создает новый экземпляр менеджера игроков.
func NewPlayerManager() *PlayerManager {
	return &PlayerManager{
		players: make(map[string]*PlayerData),
	}
}

// AddPlayer добавляет нового игрока в конец ростера.
func (pm *PlayerManager) AddPlayer(id, name string, spawn game.Position) (*PlayerData, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, exists := pm.players[id]; exists {
		return nil, errors.New("игрок с таким ID уже существует")
	}

	player := &PlayerData{
		id:    id,
		name:  name,
		index: len(pm.order),
		body:  physics.NewBody(spawn.X, spawn.Y, playerWidth, playerHeight),
	}

	pm.players[id] = player
	pm.order = append(pm.order, player)
	return player, nil
}

// GetPlayer возвращает данные игрока по ID.
func (pm *PlayerManager) GetPlayer(id string) (*PlayerData, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	player, exists := pm.players[id]
	if !exists {
		return nil, errors.New("игрок не найден")
	}
	return player, nil
}

// ByIndex возвращает игрока по позиции в ростере.
func (pm *PlayerManager) ByIndex(index int) (*PlayerData, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if index < 0 || index >= len(pm.order) {
		return nil, errors.New("индекс игрока вне диапазона")
	}
	return pm.order[index], nil
}

// RemovePlayer удаляет игрока из менеджера и переиндексирует ростер.
func (pm *PlayerManager) RemovePlayer(id string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	player, exists := pm.players[id]
	if !exists {
		return errors.New("игрок не найден")
	}
	delete(pm.players, id)

	for i, p := range pm.order {
		if p == player {
			pm.order = append(pm.order[:i], pm.order[i+1:]...)
			break
		}
	}
	for i, p := range pm.order {
		p.index = i
	}
	return nil
}

// GetAllPlayers возвращает игроков в порядке ростера.
func (pm *PlayerManager) GetAllPlayers() []*PlayerData {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	players := make([]*PlayerData, len(pm.order))
	copy(players, pm.order)
	return players
}

// Count возвращает число игроков в ростере.
func (pm *PlayerManager) Count() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.order)
}

// CentroidX возвращает среднюю X-координату всех игроков. Используется
// как отслеживаемая позиция для стриминга чанков. При пустом ростере
// возвращает 0 и false.
func (pm *PlayerManager) CentroidX() (float64, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if len(pm.order) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, p := range pm.order {
		sum += p.body.Position().X
	}
	return sum / float64(len(pm.order)), true
}
