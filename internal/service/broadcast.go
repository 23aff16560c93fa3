package service

import (
	"time"

	"github.com/annelo/go-toast-server/internal/plugin"
	"github.com/annelo/go-toast-server/pkg/protocol/game"
)

// Минимальный интервал между рассылками позиции одного игрока
const posBroadcastInterval = 200 * time.Millisecond

// broadcastPlayerUpdate рассылает состояние игрока всем клиентам. Для
// подключённого игрока рассылка троттлится, уведомление об отключении
// уходит всегда.
func (s *GameService) broadcastPlayerUpdate(playerID string, connected bool) {
	if connected {
		s.throttleMu.Lock()
		last, ok := s.lastPosBroadcast[playerID]
		now := time.Now()
		if ok && now.Sub(last) < posBroadcastInterval {
			s.throttleMu.Unlock()
			return
		}
		s.lastPosBroadcast[playerID] = now
		s.throttleMu.Unlock()
	} else {
		s.throttleMu.Lock()
		delete(s.lastPosBroadcast, playerID)
		s.throttleMu.Unlock()
	}

	update := &game.PlayerUpdate{PlayerID: playerID, IsConnected: connected}
	if player, err := s.playerManager.GetPlayer(playerID); err == nil {
		pos := player.Body().Position()
		vel := player.Body().Velocity()
		update.Name = player.DisplayName()
		update.Index = player.Index()
		update.Position = &pos
		update.Velocity = &vel
		update.Grounded = player.Grounded()
	}

	s.broadcastToAll(&game.ServerMessage{
		Type:         game.ServerPlayerUpdate,
		PlayerUpdate: update,
	})
}

// broadcastWorldEvent рассылает мировое событие всем клиентам и дёргает
// плагинные хуки событий тоста.
func (s *GameService) broadcastWorldEvent(ev *game.WorldEvent) {
	switch ev.Type {
	case game.WorldEventToastEjected:
		s.runHooks(plugin.HookAfterToastEject, ev.ToastID, ev.PlayerID)
	case game.WorldEventToastPickedUp:
		// Передача тоста учитывается в рекордах нового владельца
		if ev.PlayerID != "" {
			s.countToastPass(ev.PlayerID)
		}
		s.runHooks(plugin.HookAfterToastPickup, ev.ToastID, ev.PlayerID)
	case game.WorldEventToastReset:
		s.runHooks(plugin.HookAfterToastReset, ev.ToastID, ev.PlayerID)
	}

	s.broadcastToAll(&game.ServerMessage{
		Type:       game.ServerWorldEvent,
		WorldEvent: ev,
	})
}

// broadcastToastTimers рассылает снимок таймеров тостов.
func (s *GameService) broadcastToastTimers(update *game.ToastTimersUpdate) {
	s.broadcastToAll(&game.ServerMessage{
		Type:        game.ServerToastTimers,
		ToastTimers: update,
	})
}

// broadcastToAll отправляет сообщение всем активным клиентам без
// блокировки: медленный клиент теряет сообщения, а не тормозит тик.
func (s *GameService) broadcastToAll(msg *game.ServerMessage) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, client := range s.clients {
		client.send(msg, false)
	}
}

// sendTo отправляет сообщение одному клиенту, если он ещё подключён.
func (s *GameService) sendTo(playerID string, msg *game.ServerMessage) {
	s.mu.RLock()
	client, ok := s.clients[playerID]
	s.mu.RUnlock()
	if ok {
		client.send(msg, false)
	}
}
