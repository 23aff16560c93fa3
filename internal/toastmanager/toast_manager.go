// Package toastmanager координирует несколько независимых тостов и
// следит за межтостовым инвариантом: ни один игрок не владеет двумя
// тостами одновременно.
package toastmanager

import (
	"errors"
	"sync"

	"github.com/annelo/go-toast-server/internal/config"
	"github.com/annelo/go-toast-server/internal/toast"
	"github.com/annelo/go-toast-server/internal/worldinterfaces"
	"github.com/annelo/go-toast-server/pkg/protocol/game"
)

// ErrInvalidOwnerIndex возвращается при создании тоста на несуществующем
// индексе игрока.
var ErrInvalidOwnerIndex = errors.New("индекс начального владельца вне диапазона")

// ErrToastNotFound возвращается при обращении к неизвестному тосту.
var ErrToastNotFound = errors.New("тост не найден")

// ToastEvent — событие тоста с его идентификатором.
type ToastEvent struct {
	ToastID string
	toast.Event
}

// ToastManager владеет коллекцией тостов и упорядоченным ростером
// игроков. Игрок с индексом 0 — владелец сброса по умолчанию.
type ToastManager struct {
	cfg *config.Config
	now toast.Clock

	mu     sync.RWMutex
	toasts map[string]*toast.Toast
	order  []string
	roster []worldinterfaces.PlayerHandle
}

// NewToastManager создает новый экземпляр менеджера тостов. Часы
// передаются во все создаваемые тосты; nil означает time.Now.
func NewToastManager(cfg *config.Config, now toast.Clock) *ToastManager {
	return &ToastManager{
		cfg:    cfg,
		now:    now,
		toasts: make(map[string]*toast.Toast),
	}
}

// SetRoster заменяет ростер игроков. Порядок индексов — порядок
// отображения.
func (tm *ToastManager) SetRoster(players []worldinterfaces.PlayerHandle) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.roster = append([]worldinterfaces.PlayerHandle(nil), players...)
}

// DefaultOwner возвращает владельца сброса (индекс 0) или nil при пустом
// ростере.
func (tm *ToastManager) DefaultOwner() worldinterfaces.PlayerHandle {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.defaultOwnerLocked()
}

func (tm *ToastManager) defaultOwnerLocked() worldinterfaces.PlayerHandle {
	if len(tm.roster) == 0 {
		return nil
	}
	return tm.roster[0]
}

// resetTargetLocked возвращает цель сброса для тоста: первого игрока
// ростера, не владеющего ни одним другим тостом. Сброс не должен дать
// игроку второй тост. Сам сбрасываемый тост из скана исключается, иначе
// повторный сброс уводил бы тост от текущего владельца.
func (tm *ToastManager) resetTargetLocked(exclude *toast.Toast) worldinterfaces.PlayerHandle {
	for _, p := range tm.roster {
		busy := false
		for _, other := range tm.toasts {
			if other == exclude {
				continue
			}
			if other.OwnedBy(p) {
				busy = true
				break
			}
		}
		if !busy {
			return p
		}
	}
	return tm.defaultOwnerLocked()
}

// CreateToast создаёт тост и немедленно сбрасывает его на игрока с
// указанным индексом. Ошибка конструирования тоста фатальна только для
// этого экземпляра и не трогает остальные тосты.
func (tm *ToastManager) CreateToast(id string, initialOwnerIndex int, body worldinterfaces.PhysicsBody) (*toast.Toast, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if initialOwnerIndex < 0 || initialOwnerIndex >= len(tm.roster) {
		return nil, ErrInvalidOwnerIndex
	}
	if _, exists := tm.toasts[id]; exists {
		return nil, errors.New("тост с таким ID уже существует")
	}

	t, err := toast.New(id, tm.cfg, body, tm.now)
	if err != nil {
		return nil, err
	}
	if err := t.ResetToOwner(tm.roster[initialOwnerIndex]); err != nil {
		return nil, err
	}

	tm.toasts[id] = t
	tm.order = append(tm.order, id)
	return t, nil
}

// RemoveToast удаляет тост из менеджера (конец раунда).
func (tm *ToastManager) RemoveToast(id string) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, exists := tm.toasts[id]; !exists {
		return ErrToastNotFound
	}
	delete(tm.toasts, id)
	for i, tid := range tm.order {
		if tid == id {
			tm.order = append(tm.order[:i], tm.order[i+1:]...)
			break
		}
	}
	return nil
}

// Update продвигает все тосты на dt секунд в порядке создания и
// возвращает события всех тостов за тик. Цель сброса пересчитывается
// перед каждым тостом: сброс предыдущего тоста занимает игрока.
func (tm *ToastManager) Update(dt float64) []ToastEvent {
	tm.mu.RLock()
	toasts := make([]*toast.Toast, 0, len(tm.order))
	for _, id := range tm.order {
		toasts = append(toasts, tm.toasts[id])
	}
	tm.mu.RUnlock()

	var events []ToastEvent
	for _, t := range toasts {
		tm.mu.RLock()
		resetOwner := tm.resetTargetLocked(t)
		tm.mu.RUnlock()

		for _, ev := range t.Update(dt, resetOwner) {
			events = append(events, ToastEvent{ToastID: t.ID(), Event: ev})
		}
	}
	return events
}

// AttemptPickup — шлюз для обработчиков пересечений. Успех только если
// проходят собственные охраны тоста (полёт, кулдаун, чередование) И игрок
// сейчас не владеет ни одним тостом. Скан владения и подбор выполняются
// под одним мьютексом менеджера, поэтому между сканом и мутацией никто не
// меняет владение.
func (tm *ToastManager) AttemptPickup(toastID string, p worldinterfaces.PlayerHandle) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	t, exists := tm.toasts[toastID]
	if !exists || p == nil {
		return false
	}

	for _, other := range tm.toasts {
		if other.OwnedBy(p) {
			return false
		}
	}

	return t.AttemptPickup(p)
}

// ResetOnGroundContact сбрасывает тост после контакта с платформой
// земли. Цель сброса — первый свободный игрок ростера: владелец по
// умолчанию может уже держать другой тост.
func (tm *ToastManager) ResetOnGroundContact(toastID string) error {
	tm.mu.RLock()
	t, exists := tm.toasts[toastID]
	var owner worldinterfaces.PlayerHandle
	if exists {
		owner = tm.resetTargetLocked(t)
	}
	tm.mu.RUnlock()

	if !exists {
		return ErrToastNotFound
	}
	if owner == nil {
		return errors.New("ростер пуст, сбрасывать не на кого")
	}
	return t.ResetToOwner(owner)
}

// TimerSnapshot возвращает снимок таймеров всех тостов для отображения.
// Чистое чтение, ничего не мутирует.
func (tm *ToastManager) TimerSnapshot() []game.ToastTimerInfo {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	infos := make([]game.ToastTimerInfo, 0, len(tm.order))
	for _, id := range tm.order {
		t := tm.toasts[id]
		info := game.ToastTimerInfo{ID: id}
		if owner := t.Owner(); owner != nil {
			info.Owned = true
			info.OwnerName = owner.DisplayName()
			info.RemainingSeconds = t.Remaining()
		}
		infos = append(infos, info)
	}
	return infos
}

// Toasts возвращает тосты в порядке создания (для физической системы).
func (tm *ToastManager) Toasts() []*toast.Toast {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	out := make([]*toast.Toast, 0, len(tm.order))
	for _, id := range tm.order {
		out = append(out, tm.toasts[id])
	}
	return out
}

// GetToast возвращает тост по идентификатору.
func (tm *ToastManager) GetToast(id string) (*toast.Toast, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	t, exists := tm.toasts[id]
	if !exists {
		return nil, ErrToastNotFound
	}
	return t, nil
}
