// Package toast реализует машину состояний "горячей картошки": тост либо
// принадлежит игроку и отсчитывает время до выброса, либо летит и ждёт
// подбора. Правило чередования запрещает предыдущему владельцу поймать
// тост, пока его не подержал кто-то другой.
package toast

import (
	"errors"
	"sync"
	"time"

	"github.com/annelo/go-toast-server/internal/config"
	"github.com/annelo/go-toast-server/internal/worldinterfaces"
)

// State описывает состояние владения тостом.
type State int

const (
	// StateOwned — тост принадлежит игроку, позиция пристёгнута к нему.
	StateOwned State = iota
	// StateFlying — тост летит, физика включена.
	StateFlying
)

// Clock возвращает текущее wall-clock время. Кулдаун подбора измеряется
// настоящими часами, а не симуляционной дельтой, чтобы переживать паузу и
// скачки частоты кадров.
type Clock func() time.Time

// ErrNilBody возвращается при попытке создать тост без физического тела.
var ErrNilBody = errors.New("тост не может быть создан без физического тела")

// EventType описывает тип события тоста.
type EventType int

const (
	// EventEjected — тост принудительно выброшен по таймеру.
	EventEjected EventType = iota
	// EventPickedUp — тост подобран игроком.
	EventPickedUp
	// EventReset — тост сброшен на владельца по контакту с землёй или
	// вылету за границы мира.
	EventReset
	// EventWarning — до выброса осталось меньше порога; срабатывает не
	// более одного раза за владение.
	EventWarning
)

// Event описывает событие, произошедшее с тостом за тик.
type Event struct {
	Type   EventType
	Player worldinterfaces.PlayerHandle
}

// Toast — одна единица «горячей картошки».
type Toast struct {
	id   string
	cfg  *config.Config
	body worldinterfaces.PhysicsBody
	now  Clock

	mu sync.Mutex

	state     State
	owner     worldinterfaces.PlayerHandle // заполнен только в StateOwned
	remaining float64                      // секунд до выброса, только в StateOwned

	// lastOwner переживает фазу полёта и обеспечивает чередование.
	// Очищается только явным сбросом.
	lastOwner    worldinterfaces.PlayerHandle
	lastPickupAt time.Time

	// warningFired — прозвучал ли сигнал предупреждения за текущее
	// владение. Сбрасывается при каждом подборе.
	warningFired bool
}

// New создаёт тост. Отсутствие физического тела — фатальная ошибка
// конструирования: дальнейшая логика выброса/подбора предполагает живое
// тело.
func New(id string, cfg *config.Config, body worldinterfaces.PhysicsBody, now Clock) (*Toast, error) {
	if body == nil {
		return nil, ErrNilBody
	}
	if now == nil {
		now = time.Now
	}
	return &Toast{
		id:    id,
		cfg:   cfg,
		body:  body,
		now:   now,
		state: StateFlying,
	}, nil
}

// ID возвращает идентификатор тоста.
func (t *Toast) ID() string { return t.id }

// State возвращает текущее состояние владения.
func (t *Toast) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Owner возвращает текущего владельца или nil в полёте.
func (t *Toast) Owner() worldinterfaces.PlayerHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.owner
}

// LastOwner возвращает последнего владельца (для правила чередования).
func (t *Toast) LastOwner() worldinterfaces.PlayerHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastOwner
}

// Remaining возвращает оставшиеся секунды до выброса. В полёте — 0.
func (t *Toast) Remaining() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateOwned {
		return 0
	}
	return t.remaining
}

// Body возвращает физическое тело тоста.
func (t *Toast) Body() worldinterfaces.PhysicsBody { return t.body }

// OwnedBy возвращает true, если тост принадлежит данному игроку.
func (t *Toast) OwnedBy(p worldinterfaces.PlayerHandle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == StateOwned && t.owner == p
}

// Update продвигает машину состояний на dt секунд. resetOwner — игрок,
// на которого тост сбрасывается при вылете за границы мира. Возвращает
// события, произошедшие за тик.
func (t *Toast) Update(dt float64, resetOwner worldinterfaces.PlayerHandle) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	var events []Event

	switch t.state {
	case StateOwned:
		t.remaining -= dt
		t.slaveToOwnerLocked()

		if !t.warningFired && t.remaining <= t.cfg.TimeToEject/3 && t.remaining > 0 {
			t.warningFired = true
			events = append(events, Event{Type: EventWarning, Player: t.owner})
		}

		if t.remaining <= 0 {
			if ejected, prev := t.ejectLocked(); ejected {
				events = append(events, Event{Type: EventEjected, Player: prev})
			}
		}

	case StateFlying:
		// Проверка границ мира выполняется каждый тик, но действует
		// только в полёте.
		pos := t.body.Position()
		limit := t.cfg.WorldBoundsX + t.cfg.OutOfBoundsSlack
		if (pos.X < -limit || pos.X > limit || pos.Y > t.cfg.GroundHeight+t.cfg.OutOfBoundsSlack) && resetOwner != nil {
			t.resetLocked(resetOwner)
			events = append(events, Event{Type: EventReset, Player: resetOwner})
		}
	}

	return events
}

// AttemptPickup пытается отдать летящий тост игроку. Отказ любого из
// охранных условий — тихий no-op с возвратом false, никогда не ошибка.
// Лимит «не больше одного тоста на игрока» проверяет менеджер.
func (t *Toast) AttemptPickup(p worldinterfaces.PlayerHandle) bool {
	if p == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateFlying {
		return false
	}
	// Кулдаун: wall-clock с момента последнего успешного подбора
	if !t.lastPickupAt.IsZero() && t.now().Sub(t.lastPickupAt) < t.cfg.PickupCooldown() {
		return false
	}
	// Чередование: только что выбросивший не может сразу поймать
	if t.lastOwner != nil && t.lastOwner == p {
		return false
	}

	t.pickupLocked(p)
	return true
}

// ResetToOwner — корректирующий сброс тоста на указанного игрока
// (контакт с землёй, вылет за границы, начало раунда). Сначала очищает
// lastOwner и кулдаун, затем выполняет подбор без охранных проверок.
func (t *Toast) ResetToOwner(p worldinterfaces.PlayerHandle) error {
	if p == nil {
		return errors.New("владелец сброса не задан")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetLocked(p)
	return nil
}

// resetLocked очищает историю владения и выполняет безусловный подбор.
func (t *Toast) resetLocked(p worldinterfaces.PlayerHandle) {
	t.lastOwner = nil
	t.lastPickupAt = time.Time{}
	t.state = StateFlying
	t.owner = nil
	t.pickupLocked(p)
}

// pickupLocked выполняет подбор без проверок. Вызывается под мьютексом.
func (t *Toast) pickupLocked(p worldinterfaces.PlayerHandle) {
	t.state = StateOwned
	t.owner = p
	t.remaining = t.cfg.TimeToEject
	t.lastPickupAt = t.now()
	t.warningFired = false

	t.body.SetSimulated(false)
	t.slaveToOwnerLocked()
}

// ejectLocked переводит тост из Owned в Flying. Выброс без владельца —
// no-op.
func (t *Toast) ejectLocked() (bool, worldinterfaces.PlayerHandle) {
	if t.state != StateOwned || t.owner == nil {
		return false, nil
	}

	owner := t.owner
	pos := owner.Body().Position()
	vel := owner.Body().Velocity()

	t.lastOwner = owner
	t.state = StateFlying
	t.owner = nil
	t.remaining = 0

	t.body.SetPosition(pos.X, pos.Y-t.cfg.ToastOffsetY)
	t.body.SetSimulated(true)
	t.body.SetVelocity(vel.X*t.cfg.HorizontalMultiplier, -t.cfg.EjectImpulseY)

	return true, owner
}

// slaveToOwnerLocked пристёгивает позицию тоста к владельцу.
func (t *Toast) slaveToOwnerLocked() {
	if t.owner == nil {
		return
	}
	pos := t.owner.Body().Position()
	t.body.SetPosition(pos.X, pos.Y-t.cfg.ToastOffsetY)
}
