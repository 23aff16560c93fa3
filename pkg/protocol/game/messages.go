// Package game содержит wire-типы протокола между сервером и браузерным
// клиентом. Все сообщения сериализуются в JSON и ходят по websocket.
package game

// Position представляет позицию в мире (пиксели).
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Velocity представляет скорость (пиксели в секунду).
type Velocity struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Типы клиентских сообщений
const (
	ClientJoin  = "join"
	ClientInput = "input"
	ClientPing  = "ping"
	ClientChat  = "chat"
)

// Типы серверных сообщений
const (
	ServerJoinResponse = "join_response"
	ServerPlayerUpdate = "player_update"
	ServerToastTimers  = "toast_timers"
	ServerWorldEvent   = "world_event"
	ServerPong         = "pong"
	ServerChat         = "chat"
)

// Типы мировых событий
const (
	WorldEventToastEjected   = "TOAST_EJECTED"
	WorldEventToastPickedUp  = "TOAST_PICKED_UP"
	WorldEventToastReset     = "TOAST_RESET"
	WorldEventToastWarning   = "TOAST_WARNING"
	WorldEventChunkGenerated = "CHUNK_GENERATED"
	WorldEventChunkRemoved   = "CHUNK_REMOVED"
	WorldEventRoundTime      = "ROUND_TIME"
	WorldEventServerShutdown = "SERVER_SHUTDOWN"
)

// ClientMessage — конверт для всех сообщений от клиента.
// Поле Type определяет, какой из указателей заполнен.
type ClientMessage struct {
	Type     string       `json:"type"`
	PlayerID string       `json:"playerId,omitempty"`
	Join     *JoinRequest `json:"join,omitempty"`
	Input    *PlayerInput `json:"input,omitempty"`
	Ping     *Ping        `json:"ping,omitempty"`
	Chat     *ChatMessage `json:"chat,omitempty"`
}

// ServerMessage — конверт для всех сообщений от сервера.
type ServerMessage struct {
	Type         string             `json:"type"`
	JoinResponse *JoinResponse      `json:"joinResponse,omitempty"`
	PlayerUpdate *PlayerUpdate      `json:"playerUpdate,omitempty"`
	ToastTimers  *ToastTimersUpdate `json:"toastTimers,omitempty"`
	WorldEvent   *WorldEvent        `json:"worldEvent,omitempty"`
	Pong         *Pong              `json:"pong,omitempty"`
	Chat         *ChatBroadcast     `json:"chat,omitempty"`
}

// JoinRequest — запрос на подключение к игре.
type JoinRequest struct {
	PlayerName string `json:"playerName"`
}

// JoinResponse — ответ на запрос подключения.
type JoinResponse struct {
	PlayerID      string    `json:"playerId"`
	PlayerIndex   int       `json:"playerIndex"`
	SpawnPosition *Position `json:"spawnPosition"`
	TimeToEject   float64   `json:"timeToEject"`
	ChunkWidth    float64   `json:"chunkWidth"`
	Success       bool      `json:"success"`
	ErrorMessage  string    `json:"errorMessage,omitempty"`
}

// PlayerInput — снимок состояния управления за кадр. Сервер авторитетен:
// edge-детекция ("только что нажато") выполняется на сервере, клиент шлёт
// только уровни.
type PlayerInput struct {
	Seq   uint32 `json:"seq"`
	Left  bool   `json:"left"`
	Right bool   `json:"right"`
	Jump  bool   `json:"jump"`
}

// Ping используется для замера задержки.
type Ping struct {
	ClientTime int64 `json:"clientTime"`
}

// Pong — ответ сервера на Ping.
type Pong struct {
	ClientTime int64 `json:"clientTime"`
	ServerTime int64 `json:"serverTime"`
}

// ChatMessage — сообщение чата от клиента.
type ChatMessage struct {
	Content string `json:"content"`
}

// ChatBroadcast — сообщение чата, рассылаемое сервером.
type ChatBroadcast struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Content    string `json:"content"`
}

// PlayerUpdate — обновление состояния игрока.
type PlayerUpdate struct {
	PlayerID    string    `json:"playerId"`
	Name        string    `json:"name"`
	Index       int       `json:"index"`
	Position    *Position `json:"position,omitempty"`
	Velocity    *Velocity `json:"velocity,omitempty"`
	Grounded    bool      `json:"grounded"`
	IsConnected bool      `json:"isConnected"`
}

// ToastTimerInfo — снимок таймера одного тоста для отображения.
type ToastTimerInfo struct {
	ID               string  `json:"id"`
	Owned            bool    `json:"owned"`
	OwnerName        string  `json:"ownerName,omitempty"`
	RemainingSeconds float64 `json:"remainingSeconds"`
}

// ToastTimersUpdate — агрегированный снимок всех таймеров.
type ToastTimersUpdate struct {
	Timers []ToastTimerInfo `json:"timers"`
}

// PlatformInfo описывает платформу для отрисовки на клиенте.
type PlatformInfo struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Ground bool    `json:"ground"`
	Kind   string  `json:"kind"`
}

// WorldEvent — событие мира, рассылаемое клиентам.
type WorldEvent struct {
	Type       string         `json:"type"`
	ToastID    string         `json:"toastId,omitempty"`
	PlayerID   string         `json:"playerId,omitempty"`
	Position   *Position      `json:"position,omitempty"`
	ChunkIndex int32          `json:"chunkIndex,omitempty"`
	Platforms  []PlatformInfo `json:"platforms,omitempty"`
	RoundTime  float64        `json:"roundTime,omitempty"`
	Message    string         `json:"message,omitempty"`
}
