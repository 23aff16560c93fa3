package service

import (
	"context"
	"expvar"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/annelo/go-toast-server/internal/storage"
	"github.com/annelo/go-toast-server/pkg/protocol/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Браузерный клиент может приходить с любого origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterRoutes регистрирует HTTP-маршруты сервиса.
func (s *GameService) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWebsocket)
}

// handleWebsocket обслуживает одно клиентское соединение от подключения
// до разрыва.
func (s *GameService) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("Не удалось апгрейдить соединение: %v", err)
		return
	}

	// Первое сообщение обязано быть join
	var first game.ClientMessage
	if err := conn.ReadJSON(&first); err != nil || first.Type != game.ClientJoin || first.Join == nil {
		s.logger.Warnf("Некорректное первое сообщение от %s", conn.RemoteAddr())
		conn.Close()
		return
	}

	playerID := uuid.New().String()
	spawnX, spawnY := s.spawnPosition()

	player, err := s.playerManager.AddPlayer(playerID, first.Join.PlayerName, game.Position{X: spawnX, Y: spawnY})
	if err != nil {
		s.logger.Errorf("Failed to add player %s: %v", first.Join.PlayerName, err)
		conn.WriteJSON(&game.ServerMessage{
			Type: game.ServerJoinResponse,
			JoinResponse: &game.JoinResponse{
				Success:      false,
				ErrorMessage: "Could not add player: " + err.Error(),
			},
		})
		conn.Close()
		return
	}

	// Восстанавливаем рекорды, если хранилище доступно
	if s.worldStorage != nil {
		if rec, err := s.worldStorage.LoadPlayerRecord(r.Context(), playerID); err == nil {
			player.SetBestX(rec.BestX)
		}
	}

	s.syncRoster()

	client := newClientConn(conn)
	s.mu.Lock()
	s.clients[playerID] = client
	s.mu.Unlock()

	s.logger.Infof("Игрок %s (%s) присоединился к игре", first.Join.PlayerName, playerID)
	expvar.Get("players_connected").(*expvar.Int).Add(1)

	client.send(&game.ServerMessage{
		Type: game.ServerJoinResponse,
		JoinResponse: &game.JoinResponse{
			PlayerID:      playerID,
			PlayerIndex:   player.Index(),
			SpawnPosition: &game.Position{X: spawnX, Y: spawnY},
			TimeToEject:   s.cfg.TimeToEject,
			ChunkWidth:    s.cfg.ChunkWidth,
			Success:       true,
		},
	}, true)

	// Новому клиенту нужны уже резидентные чанки
	s.sendResidentChunks(client)

	go client.writePump()

	s.broadcastPlayerUpdate(playerID, true)

	// Читаем входящие сообщения до разрыва
	for {
		var msg game.ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			s.logger.Infof("Connection lost for player %s: %v", playerID, err)
			break
		}
		s.handleClientMessage(playerID, &msg, client)
	}

	s.disconnectPlayer(playerID)
}

// handleClientMessage routes incoming client messages to appropriate handlers.
func (s *GameService) handleClientMessage(playerID string, msg *game.ClientMessage, client *clientConn) {
	switch msg.Type {
	case game.ClientInput:
		if msg.Input != nil {
			s.handlePlayerInput(playerID, msg.Input)
		}
	case game.ClientPing:
		if msg.Ping != nil {
			client.send(&game.ServerMessage{
				Type: game.ServerPong,
				Pong: &game.Pong{
					ClientTime: msg.Ping.ClientTime,
					ServerTime: time.Now().UnixMilli(),
				},
			}, false)
		}
	case game.ClientChat:
		if msg.Chat != nil {
			s.handleChatMessage(playerID, msg.Chat)
		}
	}
}

// handlePlayerInput сохраняет снимок ввода; применит его физический тик.
func (s *GameService) handlePlayerInput(playerID string, in *game.PlayerInput) {
	player, err := s.playerManager.GetPlayer(playerID)
	if err != nil {
		s.logger.Warnf("Ввод от неизвестного игрока %s", playerID)
		return
	}
	player.SetInput(*in)
	s.broadcastPlayerUpdate(playerID, true)
}

// handleChatMessage рассылает сообщение чата всем клиентам.
func (s *GameService) handleChatMessage(playerID string, chat *game.ChatMessage) {
	player, err := s.playerManager.GetPlayer(playerID)
	if err != nil {
		return
	}
	s.broadcastToAll(&game.ServerMessage{
		Type: game.ServerChat,
		Chat: &game.ChatBroadcast{
			PlayerID:   playerID,
			PlayerName: player.DisplayName(),
			Content:    chat.Content,
		},
	})
}

// sendResidentChunks отправляет клиенту все резидентные чанки.
func (s *GameService) sendResidentChunks(client *clientConn) {
	for _, idx := range s.chunkManager.ResidentIndices() {
		chunk, err := s.chunkManager.GetChunk(idx)
		if err != nil {
			continue
		}
		ev := &game.WorldEvent{
			Type:       game.WorldEventChunkGenerated,
			ChunkIndex: chunk.Index,
		}
		for _, p := range chunk.Platforms {
			ev.Platforms = append(ev.Platforms, p.ToInfo())
		}
		client.send(&game.ServerMessage{Type: game.ServerWorldEvent, WorldEvent: ev}, true)
	}
}

// disconnectPlayer выполняет полную очистку после разрыва соединения.
func (s *GameService) disconnectPlayer(playerID string) {
	s.mu.Lock()
	client, ok := s.clients[playerID]
	if ok {
		delete(s.clients, playerID)
	}
	s.mu.Unlock()
	if client != nil {
		client.close()
	}

	player, err := s.playerManager.GetPlayer(playerID)
	if err != nil {
		return
	}

	// Тост уходящего игрока возвращается владельцу сброса
	s.releaseToastsOf(player)

	if s.worldStorage != nil {
		_ = s.worldStorage.SavePlayerRecord(context.Background(), &storage.PlayerRecord{
			ID:          playerID,
			Name:        player.DisplayName(),
			BestX:       player.BestX(),
			ToastPasses: s.passesOf(playerID),
			LastSeen:    time.Now().Unix(),
		})
	}

	s.playerManager.RemovePlayer(playerID)
	s.syncRoster()

	s.broadcastPlayerUpdate(playerID, false)
	expvar.Get("players_connected").(*expvar.Int).Add(-1)

	s.logger.Infof("Player %s disconnected", playerID)
}
