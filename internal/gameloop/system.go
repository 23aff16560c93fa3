package gameloop

import (
	"context"
	"time"

	"github.com/annelo/go-toast-server/internal/chunkmanager"
	"github.com/annelo/go-toast-server/internal/config"
	"github.com/annelo/go-toast-server/internal/playermanager"
	"github.com/annelo/go-toast-server/internal/toastmanager"
	"github.com/annelo/go-toast-server/pkg/protocol/game"
)

// System описывает логику, выполняемую каждый тик цикла.
type System interface {
	// Init вызывается один раз перед запуском цикла.
	Init(deps Dependencies) error
	// Tick вызывается каждый игровой тик.
	Tick(ctx context.Context, dt time.Duration)
	// Name возвращает читаемое имя системы.
	Name() string
}

// ChunkHooks — колбэки вокруг генерации чанка, прокинутые из реестра
// плагинов (gameloop не знает о реестре, чтобы не замыкать цикл
// импортов).
type ChunkHooks struct {
	Before func(index int32)
	After  func(index int32)
}

// Dependencies передаются системам при инициализации.
type Dependencies struct {
	Cfg     *config.Config
	Players *playermanager.PlayerManager
	Toasts  *toastmanager.ToastManager
	Chunks  *chunkmanager.ChunkManager

	// EmitWorldEvent используется системами для широковещательных событий.
	EmitWorldEvent func(event *game.WorldEvent)
	// EmitToastTimers рассылает снимок таймеров тостов.
	EmitToastTimers func(update *game.ToastTimersUpdate)
	// Hooks вызываются вокруг генерации чанков.
	Hooks ChunkHooks
}
