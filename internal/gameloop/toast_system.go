package gameloop

import (
	"context"
	"expvar"
	"log"
	"time"

	"github.com/annelo/go-toast-server/internal/toast"
	"github.com/annelo/go-toast-server/internal/toastmanager"
	"github.com/annelo/go-toast-server/pkg/protocol/game"
)

// Снимок таймеров рассылается каждые timersBroadcastEvery тиков
// (~4 раза в секунду при 20 TPS).
const timersBroadcastEvery = 5

// ToastSystem тикает машины состояний тостов и транслирует их события.
// Работает после физики: все пересечения кадра уже разрешены.
type ToastSystem struct {
	deps  Dependencies
	ticks int64
}

func NewToastSystem() *ToastSystem { return &ToastSystem{} }

func (s *ToastSystem) Name() string { return "toast" }

func (s *ToastSystem) Init(deps Dependencies) error {
	s.deps = deps
	return nil
}

func (s *ToastSystem) Tick(ctx context.Context, dt time.Duration) {
	s.ticks++

	events := s.deps.Toasts.Update(dt.Seconds())
	for _, ev := range events {
		s.broadcast(ev)
	}

	if s.ticks%timersBroadcastEvery == 0 && s.deps.EmitToastTimers != nil {
		s.deps.EmitToastTimers(&game.ToastTimersUpdate{
			Timers: s.deps.Toasts.TimerSnapshot(),
		})
	}
}

func (s *ToastSystem) broadcast(ev toastmanager.ToastEvent) {
	if s.deps.EmitWorldEvent == nil {
		return
	}

	we := &game.WorldEvent{ToastID: ev.ToastID}
	if ev.Player != nil {
		we.PlayerID = ev.Player.ID()
	}

	switch ev.Type {
	case toast.EventEjected:
		we.Type = game.WorldEventToastEjected
		if c, ok := expvar.Get("toasts_ejected").(*expvar.Int); ok && c != nil {
			c.Add(1)
		}
		log.Printf("[ToastSystem.Tick] toast %s ejected by %s", ev.ToastID, we.PlayerID)
	case toast.EventReset:
		we.Type = game.WorldEventToastReset
	case toast.EventWarning:
		we.Type = game.WorldEventToastWarning
	default:
		return
	}

	s.deps.EmitWorldEvent(we)
}
