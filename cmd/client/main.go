package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/nsf/termbox-go"

	"github.com/annelo/go-toast-server/pkg/protocol/game"
)

var (
	serverAddr = flag.String("server", "localhost:8080", "Адрес сервера и порт")
	playerName = flag.String("name", "Player1", "Имя игрока")
	debugMode  = flag.Bool("debug", false, "Режим отладки (показать подробную информацию)")
)

// Масштаб перевода мировых пикселей в клетки терминала
const (
	cellWidthPx  = 16.0
	cellHeightPx = 32.0
)

// ClientState содержит состояние клиента
type ClientState struct {
	playerID    string
	playerName  string
	position    *game.Position
	grounded    bool
	timeToEject float64
	chunkWidth  float64

	// Платформы по идентификатору
	platforms map[string]game.PlatformInfo
	// Последний снимок таймеров тостов
	timers []game.ToastTimerInfo
	// Позиции других игроков, ключ — playerID
	otherPlayers map[string]*game.Position
	// Последние сообщения от сервера
	serverMessages []string
	roundTime      float64

	mu           sync.RWMutex
	conn         *websocket.Conn
	writeMu      sync.Mutex
	inputSeq     uint32
	lastKeyPress time.Time
}

// newClientState создает новое состояние клиента
func newClientState() *ClientState {
	return &ClientState{
		position:     &game.Position{},
		platforms:    make(map[string]game.PlatformInfo),
		otherPlayers: make(map[string]*game.Position),
		serverMessages: []string{
			"Подключение к серверу...",
		},
	}
}

// addServerMessage добавляет сообщение в список сообщений
func (cs *ClientState) addServerMessage(message string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	// Добавляем новое сообщение в начало списка
	cs.serverMessages = append([]string{message}, cs.serverMessages...)

	// Ограничиваем количество сообщений
	if len(cs.serverMessages) > 5 {
		cs.serverMessages = cs.serverMessages[:5]
	}
}

// sendMessage отправляет сообщение серверу с защитой от гонок записи.
func (cs *ClientState) sendMessage(msg *game.ClientMessage) {
	cs.writeMu.Lock()
	defer cs.writeMu.Unlock()
	if err := cs.conn.WriteJSON(msg); err != nil {
		log.Printf("Ошибка при отправке сообщения: %v", err)
	}
}

// sendInput отправляет снимок управления.
func (cs *ClientState) sendInput(left, right, jump bool) {
	cs.mu.Lock()
	cs.inputSeq++
	seq := cs.inputSeq
	cs.lastKeyPress = time.Now()
	cs.mu.Unlock()

	cs.sendMessage(&game.ClientMessage{
		Type:     game.ClientInput,
		PlayerID: cs.playerID,
		Input: &game.PlayerInput{
			Seq:   seq,
			Left:  left,
			Right: right,
			Jump:  jump,
		},
	})
}

// inputDecayLoop сбрасывает управление, если клавиши давно не нажимались.
// Терминал не сообщает об отпускании клавиш, поэтому удержание
// аппроксимируется повторами клавиатуры.
func (cs *ClientState) inputDecayLoop() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		cs.mu.RLock()
		stale := time.Since(cs.lastKeyPress) > 150*time.Millisecond
		joined := cs.playerID != ""
		cs.mu.RUnlock()
		if joined && stale {
			cs.sendInput(false, false, false)
			// Не спамим нулевыми снимками
			cs.mu.Lock()
			cs.lastKeyPress = time.Now().Add(time.Hour)
			cs.mu.Unlock()
		}
	}
}

// processInput обрабатывает ввод с клавиатуры
func processInput(cs *ClientState) {
	for {
		switch ev := termbox.PollEvent(); ev.Type {
		case termbox.EventKey:
			switch ev.Key {
			case termbox.KeyEsc, termbox.KeyCtrlC:
				return // Выход из игры
			case termbox.KeyArrowLeft:
				cs.sendInput(true, false, false)
			case termbox.KeyArrowRight:
				cs.sendInput(false, true, false)
			case termbox.KeyArrowUp, termbox.KeySpace:
				cs.sendInput(false, false, true)
			}

			switch ev.Ch {
			case 'a':
				cs.sendInput(true, false, false)
			case 'd':
				cs.sendInput(false, true, false)
			case 'w':
				cs.sendInput(false, false, true)
			case 'q':
				return // Выход из игры
			}
		case termbox.EventError:
			log.Fatalf("Ошибка терминала: %v", ev.Err)
		}
	}
}

// renderWorld отображает мир вокруг игрока
func renderWorld(cs *ClientState) {
	// Очищаем экран
	termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)

	// Получаем размеры терминала
	width, height := termbox.Size()

	cs.mu.RLock()
	pos := *cs.position
	grounded := cs.grounded
	timers := append([]game.ToastTimerInfo(nil), cs.timers...)
	platforms := make([]game.PlatformInfo, 0, len(cs.platforms))
	for _, p := range cs.platforms {
		platforms = append(platforms, p)
	}
	others := make(map[string]game.Position, len(cs.otherPlayers))
	for id, p := range cs.otherPlayers {
		if p != nil {
			others[id] = *p
		}
	}
	messages := append([]string(nil), cs.serverMessages...)
	roundTime := cs.roundTime
	cs.mu.RUnlock()

	// Верхняя информационная панель
	infoY := 0
	playerInfo := fmt.Sprintf("Игрок: %s | X: %.0f | Y: %.0f | Раунд: %.0fс",
		cs.playerName, pos.X, pos.Y, roundTime)
	drawText(0, infoY, width, playerInfo, termbox.ColorWhite, termbox.ColorDefault)
	infoY++

	// Таймеры тостов
	for _, t := range timers {
		var line string
		if t.Owned {
			line = fmt.Sprintf("%s: у %s, %.1fс до выброса", t.ID, t.OwnerName, t.RemainingSeconds)
		} else {
			line = fmt.Sprintf("%s: в полёте", t.ID)
		}
		color := termbox.ColorGreen
		if t.Owned && t.RemainingSeconds < cs.timeToEject/3 {
			color = termbox.ColorRed
		}
		drawText(0, infoY, width, line, color, termbox.ColorDefault)
		infoY++
	}

	// Если включен режим отладки, показываем дополнительную информацию
	if *debugMode {
		chunkIdx := int32(0)
		if cs.chunkWidth > 0 {
			chunkIdx = int32(pos.X / cs.chunkWidth)
		}
		debugInfo := fmt.Sprintf("Чанк: %d | Платформ: %d | Земля: %v", chunkIdx, len(platforms), grounded)
		drawText(0, infoY, width, debugInfo, termbox.ColorYellow, termbox.ColorDefault)
		infoY++
	}

	// Граница между инфо-панелью и игровым миром
	for x := 0; x < width; x++ {
		termbox.SetCell(x, infoY, '-', termbox.ColorWhite, termbox.ColorDefault)
	}
	infoY++

	startY := infoY
	worldHeight := height - startY - 7 // Оставляем место для сообщений внизу
	worldWidth := width

	// Камера центрируется на игроке
	toScreen := func(wx, wy float64) (int, int) {
		sx := worldWidth/2 + int((wx-pos.X)/cellWidthPx)
		sy := startY + worldHeight/2 + int((wy-pos.Y)/cellHeightPx)
		return sx, sy
	}
	visible := func(sx, sy int) bool {
		return sx >= 0 && sx < worldWidth && sy >= startY && sy < startY+worldHeight
	}

	// Платформы
	for _, p := range platforms {
		symbol := '#'
		color := termbox.ColorWhite
		switch p.Kind {
		case "bush":
			symbol = '"'
			color = termbox.ColorGreen
		case "cloud":
			symbol = '~'
			color = termbox.ColorCyan
		}
		cells := int(p.Width / cellWidthPx)
		if cells < 1 {
			cells = 1
		}
		for i := 0; i < cells; i++ {
			sx, sy := toScreen(p.X+float64(i)*cellWidthPx, p.Y)
			if visible(sx, sy) {
				termbox.SetCell(sx, sy, symbol, color, termbox.ColorDefault)
			}
		}
	}

	// Другие игроки
	for _, p := range others {
		sx, sy := toScreen(p.X, p.Y)
		if visible(sx, sy) {
			termbox.SetCell(sx, sy, 'P', termbox.ColorYellow, termbox.ColorDefault)
		}
	}

	// Наш игрок всегда в центре
	sx, sy := toScreen(pos.X, pos.Y)
	if visible(sx, sy) {
		termbox.SetCell(sx, sy, '@', termbox.ColorRed, termbox.ColorDefault)
	}

	// Отображаем сообщения внизу экрана
	msgY := height - 7
	drawText(0, msgY, width, "----- Сообщения -----", termbox.ColorWhite, termbox.ColorDefault)
	msgY++

	for i, msg := range messages {
		if i >= 5 {
			break
		}
		drawText(0, msgY+i, width, msg, termbox.ColorCyan, termbox.ColorDefault)
	}

	// Отображаем инструкции внизу
	helpY := height - 1
	instructions := "Управление: Стрелки/AD - перемещение, W/Пробел - прыжок, Q/Esc - выход"
	drawText(0, helpY, width, instructions, termbox.ColorWhite, termbox.ColorDefault)

	// Обновляем экран
	termbox.Flush()
}

// drawText отображает текст с ограничением по ширине
func drawText(x, y, maxWidth int, text string, fg, bg termbox.Attribute) {
	text = runewidth.Truncate(text, maxWidth, "")

	cx := x
	for _, ch := range text {
		termbox.SetCell(cx, y, ch, fg, bg)
		cx += runewidth.RuneWidth(ch)
	}
}

// processServerMessages обрабатывает сообщения от сервера
func processServerMessages(cs *ClientState) {
	for {
		var msg game.ServerMessage
		if err := cs.conn.ReadJSON(&msg); err != nil {
			cs.addServerMessage("Сервер закрыл соединение")
			return
		}

		switch msg.Type {
		case game.ServerWorldEvent:
			handleWorldEvent(cs, msg.WorldEvent)

		case game.ServerPlayerUpdate:
			update := msg.PlayerUpdate
			if update == nil {
				continue
			}
			if update.PlayerID == cs.playerID {
				cs.mu.Lock()
				if update.Position != nil {
					cs.position = update.Position
				}
				cs.grounded = update.Grounded
				cs.mu.Unlock()
			} else {
				cs.mu.Lock()
				if !update.IsConnected {
					delete(cs.otherPlayers, update.PlayerID)
				} else if update.Position != nil {
					cs.otherPlayers[update.PlayerID] = update.Position
				}
				cs.mu.Unlock()
				if !update.IsConnected {
					cs.addServerMessage(fmt.Sprintf("Игрок %s отключился", update.Name))
				}
			}

		case game.ServerToastTimers:
			if msg.ToastTimers != nil {
				cs.mu.Lock()
				cs.timers = msg.ToastTimers.Timers
				cs.mu.Unlock()
			}

		case game.ServerChat:
			if msg.Chat != nil {
				cs.addServerMessage(fmt.Sprintf("%s: %s", msg.Chat.PlayerName, msg.Chat.Content))
			}

		case game.ServerPong:
			// Пинг не отображаем
		}
	}
}

// handleWorldEvent обрабатывает событие мира
func handleWorldEvent(cs *ClientState, event *game.WorldEvent) {
	if event == nil {
		return
	}

	switch event.Type {
	case game.WorldEventChunkGenerated:
		cs.mu.Lock()
		for _, p := range event.Platforms {
			cs.platforms[p.ID] = p
		}
		cs.mu.Unlock()
		if *debugMode {
			cs.addServerMessage(fmt.Sprintf("Чанк %d загружен", event.ChunkIndex))
		}

	case game.WorldEventChunkRemoved:
		cs.mu.Lock()
		for id, p := range cs.platforms {
			if cs.chunkWidth > 0 && int32(p.X/cs.chunkWidth) == event.ChunkIndex {
				delete(cs.platforms, id)
			}
		}
		cs.mu.Unlock()

	case game.WorldEventToastEjected:
		cs.addServerMessage(fmt.Sprintf("Тост %s выброшен!", event.ToastID))

	case game.WorldEventToastPickedUp:
		cs.addServerMessage(fmt.Sprintf("Тост %s подобран", event.ToastID))

	case game.WorldEventToastReset:
		cs.addServerMessage(fmt.Sprintf("Тост %s вернулся к владельцу", event.ToastID))

	case game.WorldEventToastWarning:
		cs.addServerMessage(fmt.Sprintf("Тост %s скоро выбросится!", event.ToastID))

	case game.WorldEventRoundTime:
		cs.mu.Lock()
		cs.roundTime = event.RoundTime
		cs.mu.Unlock()

	case game.WorldEventServerShutdown:
		cs.addServerMessage("Сервер завершает работу: " + event.Message)
	}
}

func main() {
	// Парсим флаги командной строки
	flag.Parse()

	// Инициализируем состояние клиента
	clientState := newClientState()
	clientState.playerName = *playerName

	// Устанавливаем соединение с сервером
	url := fmt.Sprintf("ws://%s/ws", *serverAddr)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatalf("Не удалось подключиться к серверу: %v", err)
	}
	defer conn.Close()
	clientState.conn = conn

	// Присоединяемся к игре
	clientState.sendMessage(&game.ClientMessage{
		Type: game.ClientJoin,
		Join: &game.JoinRequest{PlayerName: *playerName},
	})

	var resp game.ServerMessage
	if err := conn.ReadJSON(&resp); err != nil || resp.JoinResponse == nil {
		log.Fatalf("Ошибка при подключении к игре: %v", err)
	}
	if !resp.JoinResponse.Success {
		log.Fatalf("Не удалось подключиться к игре: %s", resp.JoinResponse.ErrorMessage)
	}

	// Сохраняем ID игрока и параметры мира
	clientState.playerID = resp.JoinResponse.PlayerID
	clientState.position = resp.JoinResponse.SpawnPosition
	clientState.timeToEject = resp.JoinResponse.TimeToEject
	clientState.chunkWidth = resp.JoinResponse.ChunkWidth
	clientState.addServerMessage(fmt.Sprintf("Успешное подключение! ID: %s", clientState.playerID))

	// Инициализируем терминал
	if err := termbox.Init(); err != nil {
		log.Fatalf("Не удалось инициализировать терминал: %v", err)
	}
	defer termbox.Close()

	// Обрабатываем сигналы для корректного завершения
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalChan
		termbox.Close()
		log.Println("Получен сигнал завершения, отключаемся...")
		os.Exit(0)
	}()

	// Запускаем обработку входящих сообщений от сервера
	go processServerMessages(clientState)

	// Запускаем сброс управления при отпускании клавиш
	go clientState.inputDecayLoop()

	// Периодический пинг для замера задержки
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			clientState.sendMessage(&game.ClientMessage{
				Type:     game.ClientPing,
				PlayerID: clientState.playerID,
				Ping:     &game.Ping{ClientTime: time.Now().UnixMilli()},
			})
		}
	}()

	// Запускаем цикл обновления экрана
	go func() {
		for {
			renderWorld(clientState)
			time.Sleep(100 * time.Millisecond)
		}
	}()

	// Запускаем обработку ввода
	processInput(clientState)

	// Завершаем работу
	termbox.Close()
	log.Println("Клиент завершает работу")
}
