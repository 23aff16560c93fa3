package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/annelo/go-toast-server/pkg/protocol/game"
)

var (
	serverAddr   = flag.String("addr", "localhost:8080", "Адрес websocket сервера")
	clientsCount = flag.Int("n", 100, "Количество эмулируемых клиентов")
	duration     = flag.Duration("duration", 30*time.Second, "Длительность теста")
)

func main() {
	flag.Parse()
	log.Printf("Запускаем bClient: %d клиентов на %s в течение %s", *clientsCount, *serverAddr, *duration)

	var wg sync.WaitGroup
	stopCtx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	for i := 0; i < *clientsCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runClient(stopCtx, id)
		}(i)
	}

	wg.Wait()
	log.Printf("bClient завершил работу")
}

func runClient(ctx context.Context, id int) {
	url := fmt.Sprintf("ws://%s/ws", *serverAddr)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		log.Printf("[client %d] dial error: %v", id, err)
		return
	}
	defer conn.Close()

	// Join
	join := &game.ClientMessage{
		Type: game.ClientJoin,
		Join: &game.JoinRequest{PlayerName: fmt.Sprintf("bot-%d", id)},
	}
	if err := conn.WriteJSON(join); err != nil {
		log.Printf("[client %d] join send error: %v", id, err)
		return
	}

	var resp game.ServerMessage
	if err := conn.ReadJSON(&resp); err != nil || resp.JoinResponse == nil || !resp.JoinResponse.Success {
		log.Printf("[client %d] join error: %v", id, err)
		return
	}
	playerID := resp.JoinResponse.PlayerID

	// Дренируем входящие сообщения, чтобы сервер не копил очередь
	go func() {
		for {
			var msg game.ServerMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
		}
	}()

	randSrc := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var seq uint32
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// случайное управление: боты бегут и прыгают хаотично
			seq++
			input := &game.PlayerInput{
				Seq:   seq,
				Left:  randSrc.Intn(3) == 0,
				Right: randSrc.Intn(2) == 0,
				Jump:  randSrc.Intn(5) == 0,
			}
			msg := &game.ClientMessage{Type: game.ClientInput, PlayerID: playerID, Input: input}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}

			// пинг с шансом 10%
			if randSrc.Intn(10) == 0 {
				ping := &game.ClientMessage{
					Type:     game.ClientPing,
					PlayerID: playerID,
					Ping:     &game.Ping{ClientTime: time.Now().UnixMilli()},
				}
				if err := conn.WriteJSON(ping); err != nil {
					return
				}
			}
		}
	}
}
