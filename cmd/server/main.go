package main

import (
	"bufio"
	"context"
	"expvar"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"

	"github.com/annelo/go-toast-server/internal/config"
	"github.com/annelo/go-toast-server/internal/plugin"
	"github.com/annelo/go-toast-server/internal/service"
	"github.com/annelo/go-toast-server/internal/storage"
	"github.com/annelo/go-toast-server/internal/world"
)

var (
	port       = flag.Int("port", 8080, "Порт для HTTP/websocket сервера")
	configPath = flag.String("config", "", "Путь к YAML-файлу конфигурации (пусто = значения по умолчанию)")
	worldPath  = flag.String("world", "/tmp/toast-world", "Путь для хранения данных мира")
	worldName  = flag.String("name", "default", "Название игрового мира")
	seed       = flag.Int64("seed", 0, "Сид для генерации мира (0 = случайный)")
	noStorage  = flag.Bool("no-storage", false, "Запуск без хранилища данных")
	pluginsDir = flag.String("plugins", "./plugins", "Директория с плагинами (.so)")
)

func main() {
	// Парсим флаги командной строки
	flag.Parse()

	// Если сид не указан, генерируем случайный
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	// Загружаем конфигурацию игры
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			log.Fatalf("Не удалось загрузить конфигурацию %s: %v", *configPath, err)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Некорректная конфигурация: %v", err)
	}

	// Структурированный логгер
	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Не удалось создать логгер: %v", err)
	}
	defer zlog.Sync()
	logger := zlog.Sugar()

	// Создаем контекст для управления сервисными задачами
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1) Инициализируем реестр плагинов; core-системы регистрирует сервис
	reg := plugin.NewDefaultRegistry()

	// 2) Инициализируем хранилище данных, если оно включено
	var gameService *service.GameService

	if *noStorage {
		logger.Info("Запуск в режиме без хранилища")
		gameService = service.NewGameService(cfg, reg)
	} else {
		worldStorage := openStorage(logger)
		if worldStorage == nil {
			gameService = service.NewGameService(cfg, reg)
		} else {
			gameService = service.NewGameServiceWithStorage(cfg, reg, worldStorage)
		}
	}
	gameService.SetLogger(logger)

	// 3) Обозначаем границу core-регистраций и загружаем плагины
	pm := plugin.NewPluginManager(*pluginsDir)
	reg.MarkCore()
	if err := pm.LoadPlugins(reg); err != nil {
		logger.Warnf("Ошибка при загрузке плагинов: %v", err)
	}

	// HTTP-сервер: websocket-маршрут и expvar-метрики
	mux := http.NewServeMux()
	gameService.RegisterRoutes(mux)
	mux.Handle("/debug/vars", expvar.Handler())
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: mux,
	}

	// Запускаем игровую петлю
	go func() {
		if err := gameService.Start(ctx); err != nil {
			logger.Errorf("Игровая петля завершилась с ошибкой: %v", err)
		}
	}()

	// Обрабатываем сигналы для корректного завершения
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalChan
		logger.Info("Получен сигнал завершения, останавливаем сервер...")
		shutdown(cancel, gameService, httpServer)
	}()

	registerAdminCommands(reg, pm, gameService, world.NewUptime(), func() {
		shutdown(cancel, gameService, httpServer)
	})

	// CLI для администратора: REPL для команд
	go adminREPL(reg)

	// Запускаем сервер
	logger.Infof("Игровой сервер запущен на порту %d", *port)
	logger.Infof("Используется сид мира: %d", *seed)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Ошибка запуска сервера: %v", err)
	}
}

// openStorage пытается открыть бинарное хранилище; при любой ошибке
// сервер продолжает работу без него.
func openStorage(logger *zap.SugaredLogger) storage.WorldStorage {
	// Проверяем наличие директории и права доступа
	if _, err := os.Stat(*worldPath); os.IsNotExist(err) {
		if err := os.MkdirAll(*worldPath, 0755); err != nil {
			logger.Warnf("Невозможно создать директорию для хранилища %s: %v", *worldPath, err)
			logger.Warn("Продолжаем без хранилища...")
			return nil
		}
	}

	// Проверяем права на запись
	testFile := filepath.Join(*worldPath, ".write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		logger.Warnf("Нет прав на запись в директорию хранилища %s: %v", *worldPath, err)
		logger.Warn("Продолжаем без хранилища...")
		return nil
	}
	os.Remove(testFile) // Удаляем тестовый файл

	worldStorage, err := storage.NewBinaryStorage(*worldPath, *worldName, *seed)
	if err != nil {
		logger.Warnf("Ошибка при инициализации хранилища: %v", err)
		logger.Warn("Продолжаем без хранилища...")
		return nil
	}
	logger.Infof("Бинарное хранилище мира инициализировано в %s", *worldPath)
	return worldStorage
}

func shutdown(cancel context.CancelFunc, gs *service.GameService, httpServer *http.Server) {
	cancel()
	gs.Stop()
	shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shCancel()
	httpServer.Shutdown(shCtx)
}

// registerAdminCommands регистрирует встроенные команды администратора.
func registerAdminCommands(reg *plugin.DefaultRegistry, pm *plugin.PluginManager, gs *service.GameService, up *world.Uptime, stop func()) {
	reg.RegisterCommand("reload", "Reload plugins", func(args []string) (string, error) {
		if err := pm.ReloadPlugins(reg); err != nil {
			return "", err
		}
		return "Plugins reloaded successfully\n", nil
	})
	reg.RegisterCommand("stop", "Stop server", func(args []string) (string, error) {
		stop()
		return "Server stopping\n", nil
	})
	reg.RegisterCommand("help", "List commands", func(args []string) (string, error) {
		var sb strings.Builder
		for _, cmd := range reg.Commands() {
			sb.WriteString(fmt.Sprintf("%s - %s\n", cmd.Name, cmd.Description))
		}
		return sb.String(), nil
	})
	reg.RegisterCommand("status", "Show server status", func(args []string) (string, error) {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("uptime: %s\n", up.Elapsed().Round(time.Second)))
		sb.WriteString(fmt.Sprintf("players: %d\n", gs.PlayerManager().Count()))
		sb.WriteString(fmt.Sprintf("toasts: %d\n", len(gs.ToastManager().Toasts())))
		sb.WriteString(fmt.Sprintf("chunks resident: %d\n", gs.ChunkManager().ResidentChunkCount()))
		return sb.String(), nil
	})
	reg.RegisterCommand("toasts", "List toast states", func(args []string) (string, error) {
		var sb strings.Builder
		for _, info := range gs.ToastManager().TimerSnapshot() {
			if info.Owned {
				sb.WriteString(fmt.Sprintf("%s: owned by %s, %.1fs left\n", info.ID, info.OwnerName, info.RemainingSeconds))
			} else {
				sb.WriteString(fmt.Sprintf("%s: flying\n", info.ID))
			}
		}
		if sb.Len() == 0 {
			sb.WriteString("no toasts\n")
		}
		return sb.String(), nil
	})
	reg.RegisterCommand("chunks", "Show chunk manager stats", func(args []string) (string, error) {
		var sb strings.Builder
		generated, removed, resident := gs.ChunkManager().Stats()
		sb.WriteString(fmt.Sprintf("generated: %d\nremoved: %d\nresident: %d\n", generated, removed, resident))
		for k, v := range gs.ChunkManager().NoiseCacheStats() {
			sb.WriteString(fmt.Sprintf("noise %s: %v\n", k, v))
		}
		return sb.String(), nil
	})
	// List loaded plugins
	reg.RegisterCommand("plugins", "List loaded plugins", func(args []string) (string, error) {
		var sb strings.Builder
		for _, meta := range reg.PluginMetas() {
			sb.WriteString(fmt.Sprintf("%s v%s by %s: %s\n", meta.Name, meta.Version, meta.Author, meta.Description))
		}
		return sb.String(), nil
	})
	// Show plugin config
	reg.RegisterCommand("config", "Show plugin config: config <pluginName>", func(args []string) (string, error) {
		if len(args) < 1 {
			return "Usage: config <pluginName>\n", nil
		}
		name := args[0]
		cfg := reg.PluginConfig(name)
		if cfg == nil {
			return fmt.Sprintf("No config for plugin %s\n", name), nil
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return "", err
		}
		return string(data), nil
	})
}

// adminREPL читает команды администратора из stdin.
func adminREPL(reg *plugin.DefaultRegistry) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		input := strings.TrimSpace(line)
		parts := strings.Fields(input)
		if len(parts) == 0 {
			continue
		}
		name := parts[0]
		args := parts[1:]
		found := false
		for _, cmdReg := range reg.Commands() {
			if cmdReg.Name == name {
				found = true
				out, err := cmdReg.Handler(args)
				if err != nil {
					fmt.Printf("Error: %v\n", err)
				} else {
					fmt.Print(out)
				}
				break
			}
		}
		if !found {
			fmt.Printf("Неизвестная команда: %s\n", name)
		}
	}
}
