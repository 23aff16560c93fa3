package service

import (
	"context"
	"time"

	"github.com/annelo/go-toast-server/internal/storage"
	"github.com/annelo/go-toast-server/pkg/protocol/game"
)

// Stop корректно завершает работу сервиса: уведомляет клиентов,
// сохраняет рекорды и закрывает хранилище.
func (s *GameService) Stop() {
	s.logger.Info("Остановка сервиса...")

	s.disconnectAllClients("Server is shutting down")

	if s.worldStorage != nil {
		s.saveAllPlayerRecords()
		if err := s.worldStorage.Close(); err != nil {
			s.logger.Errorf("Ошибка закрытия хранилища: %v", err)
		}
	}

	s.logger.Info("Сервис остановлен")
}

// disconnectAllClients отправляет всем клиентам уведомление о
// завершении работы и закрывает соединения.
func (s *GameService) disconnectAllClients(message string) {
	shutdownMsg := &game.ServerMessage{
		Type: game.ServerWorldEvent,
		WorldEvent: &game.WorldEvent{
			Type:    game.WorldEventServerShutdown,
			Message: message,
		},
	}

	s.mu.Lock()
	clients := make([]*clientConn, 0, len(s.clients))
	for id, client := range s.clients {
		clients = append(clients, client)
		delete(s.clients, id)
	}
	s.mu.Unlock()

	for _, client := range clients {
		// Блокирующая отправка: уведомление о выключении терять нельзя
		client.send(shutdownMsg, true)
	}

	// Даём write pump время дослать очереди
	time.Sleep(100 * time.Millisecond)

	for _, client := range clients {
		client.close()
	}

	s.logger.Infof("Отключено клиентов: %d", len(clients))
}

// saveAllPlayerRecords сохраняет рекорды всех подключённых игроков.
func (s *GameService) saveAllPlayerRecords() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, p := range s.playerManager.GetAllPlayers() {
		rec := &storage.PlayerRecord{
			ID:          p.ID(),
			Name:        p.DisplayName(),
			BestX:       p.BestX(),
			ToastPasses: s.passesOf(p.ID()),
			LastSeen:    time.Now().Unix(),
		}
		if err := s.worldStorage.SavePlayerRecord(ctx, rec); err != nil {
			s.logger.Errorf("Не удалось сохранить запись игрока %s: %v", p.ID(), err)
		}
	}
}
