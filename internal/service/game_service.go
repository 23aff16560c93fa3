package service

import (
	"context"
	"expvar"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/annelo/go-toast-server/internal/chunkmanager"
	"github.com/annelo/go-toast-server/internal/config"
	"github.com/annelo/go-toast-server/internal/gameloop"
	"github.com/annelo/go-toast-server/internal/physics"
	"github.com/annelo/go-toast-server/internal/playermanager"
	"github.com/annelo/go-toast-server/internal/plugin"
	"github.com/annelo/go-toast-server/internal/storage"
	"github.com/annelo/go-toast-server/internal/toastmanager"
	"github.com/annelo/go-toast-server/internal/world"
	"github.com/annelo/go-toast-server/internal/worldinterfaces"
)

// GameService — websocket-сервис игрового мира: принимает подключения
// браузерных клиентов, владеет менеджерами и игровой петлёй.
type GameService struct {
	// logger for structured logging
	logger *zap.SugaredLogger

	cfg           *config.Config
	playerManager *playermanager.PlayerManager
	chunkManager  *chunkmanager.ChunkManager
	toastManager  *toastmanager.ToastManager
	worldStorage  storage.WorldStorage

	// Мьютекс для синхронизации доступа к внутренним структурам
	mu sync.RWMutex

	// Карта активных клиентских соединений
	clients map[string]*clientConn

	// Throttle карты: последний момент, когда позиция игрока была разослана
	lastPosBroadcast map[string]time.Time
	throttleMu       sync.Mutex

	// Счётчики передач тоста за сессию
	passesMu    sync.Mutex
	toastPasses map[string]int64

	// игровая петля
	loop *gameloop.Loop

	// Реестр плагинов с системами, хуками и командами
	registry plugin.PluginRegistry
}

const (
	// sendQueueSize is the maximum number of messages in send queues per client.
	sendQueueSize = 1024

	// Длительность тика игровой петли (20 TPS)
	tickDuration = 50 * time.Millisecond

	// Размер тела тоста (px)
	toastBodySize = 24.0
)

// NewGameService создает новый экземпляр сервиса без хранилища.
func NewGameService(cfg *config.Config, reg plugin.PluginRegistry) *GameService {
	return newGameService(cfg, reg, nil, time.Now().UnixNano())
}

// NewGameServiceWithStorage создает сервис с хранилищем; сид мира берётся
// из сохранённой информации о мире.
func NewGameServiceWithStorage(cfg *config.Config, reg plugin.PluginRegistry, worldStorage storage.WorldStorage) *GameService {
	seed := time.Now().UnixNano()
	if info, err := worldStorage.LoadWorld(context.Background()); err == nil {
		seed = info.Seed
	}
	return newGameService(cfg, reg, worldStorage, seed)
}

func newGameService(cfg *config.Config, reg plugin.PluginRegistry, worldStorage storage.WorldStorage, seed int64) *GameService {
	// Initialize default structured logger
	logger := zap.NewNop().Sugar()

	// Регистрируем core-системы в реестре. Порядок регистрации — порядок
	// выполнения за тик: физика до машины состояний тостов.
	reg.RegisterGameSystem(gameloop.NewPhysicsSystem())
	reg.RegisterGameSystem(gameloop.NewToastSystem())
	reg.RegisterGameSystem(gameloop.NewStreamSystem())
	reg.RegisterGameSystem(gameloop.NewRoundSystem())

	w := world.NewWorld(cfg, seed, nil)

	s := &GameService{
		logger:           logger,
		cfg:              cfg,
		registry:         reg,
		playerManager:    w.Players,
		chunkManager:     w.Chunks,
		toastManager:     w.Toasts,
		worldStorage:     worldStorage,
		clients:          make(map[string]*clientConn),
		lastPosBroadcast: make(map[string]time.Time),
		toastPasses:      make(map[string]int64),
	}
	return s
}

// SetLogger заменяет логгер сервиса.
func (s *GameService) SetLogger(logger *zap.SugaredLogger) {
	if logger != nil {
		s.logger = logger
	}
}

// PlayerManager возвращает менеджер игроков (для админ-команд).
func (s *GameService) PlayerManager() *playermanager.PlayerManager { return s.playerManager }

// ChunkManager возвращает менеджер чанков (для админ-команд).
func (s *GameService) ChunkManager() *chunkmanager.ChunkManager { return s.chunkManager }

// ToastManager возвращает менеджер тостов (для админ-команд).
func (s *GameService) ToastManager() *toastmanager.ToastManager { return s.toastManager }

// syncRoster передаёт актуальный ростер в менеджер тостов и при
// необходимости досоздаёт тосты: не больше одного тоста на игрока и не
// больше настроенного числа тостов.
func (s *GameService) syncRoster() {
	players := s.playerManager.GetAllPlayers()
	handles := make([]worldinterfaces.PlayerHandle, len(players))
	for i, p := range players {
		handles[i] = p
	}
	s.toastManager.SetRoster(handles)

	want := s.cfg.NumberOfToasts
	if want > len(players) {
		want = len(players)
	}
	have := len(s.toastManager.Toasts())
	for n := have; n < want; n++ {
		id := fmt.Sprintf("toast-%d", n+1)
		// Новый тост приземляется на игрока с тем же порядковым номером:
		// он гарантированно ещё ничем не владеет.
		owner := players[n]
		pos := owner.Body().Position()
		body := physics.NewBody(pos.X, pos.Y-s.cfg.ToastOffsetY, toastBodySize, toastBodySize)
		if _, err := s.toastManager.CreateToast(id, n, body); err != nil {
			// Ошибка конструирования фатальна только для этого тоста
			s.logger.Errorf("Не удалось создать тост %s: %v", id, err)
			continue
		}
		s.logger.Infof("Тост %s создан у игрока %s", id, owner.DisplayName())
	}
}

// releaseToastsOf возвращает тосты уходящего игрока владельцу сброса.
// Если владелец сброса уже держит тост, тост уходящего удаляется:
// один игрок никогда не владеет двумя тостами.
func (s *GameService) releaseToastsOf(p worldinterfaces.PlayerHandle) {
	def := s.toastManager.DefaultOwner()

	defBusy := false
	if def != nil {
		for _, t := range s.toastManager.Toasts() {
			if t.OwnedBy(def) {
				defBusy = true
				break
			}
		}
	}

	for _, t := range s.toastManager.Toasts() {
		if !t.OwnedBy(p) {
			continue
		}
		if def == nil || def == p || defBusy {
			s.toastManager.RemoveToast(t.ID())
			continue
		}
		if err := t.ResetToOwner(def); err != nil {
			s.logger.Warnf("Не удалось вернуть тост %s: %v", t.ID(), err)
			continue
		}
		defBusy = true
	}
}

// countToastPass учитывает успешную передачу тоста игроку.
func (s *GameService) countToastPass(playerID string) {
	s.passesMu.Lock()
	s.toastPasses[playerID]++
	s.passesMu.Unlock()
}

// passesOf возвращает число передач тоста за сессию.
func (s *GameService) passesOf(playerID string) int64 {
	s.passesMu.Lock()
	defer s.passesMu.Unlock()
	return s.toastPasses[playerID]
}

// spawnPosition возвращает точку появления нового игрока.
func (s *GameService) spawnPosition() (float64, float64) {
	// Небольшой разброс по X, чтобы игроки не спавнились друг в друге
	dx := float64(rand.Intn(129)) - 64
	return dx, s.cfg.GroundHeight - 96
}

func init() {
	// Инициализируем expvar-счётчики, если приложение запускается без
	// server/main (например, в тестах)
	ensureCounter := func(name string) {
		if expvar.Get(name) == nil {
			expvar.NewInt(name)
		}
	}
	ensureCounter("players_connected")
	ensureCounter("toasts_ejected")
	ensureCounter("chunks_generated")
}
