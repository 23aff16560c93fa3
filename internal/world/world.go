// Package world отвечает за инициализацию и связывание компонентов
// игрового мира
package world

import (
	"time"

	"github.com/annelo/go-toast-server/internal/chunkmanager"
	"github.com/annelo/go-toast-server/internal/config"
	"github.com/annelo/go-toast-server/internal/playermanager"
	"github.com/annelo/go-toast-server/internal/toast"
	"github.com/annelo/go-toast-server/internal/toastmanager"
)

// World представляет полный игровой мир
type World struct {
	Cfg     *config.Config
	Players *playermanager.PlayerManager
	Toasts  *toastmanager.ToastManager
	Chunks  *chunkmanager.ChunkManager
}

// NewWorld создает новый игровой мир. Часы прокидываются в менеджер
// тостов; nil означает time.Now.
func NewWorld(cfg *config.Config, seed int64, now toast.Clock) *World {
	return &World{
		Cfg:     cfg,
		Players: playermanager.NewPlayerManager(),
		Toasts:  toastmanager.NewToastManager(cfg, now),
		Chunks:  chunkmanager.NewChunkManager(cfg, seed),
	}
}

// Bootstrap генерирует стартовое окно чанков вокруг спавна.
func (w *World) Bootstrap() []*chunkmanager.WorldChunk {
	return w.Chunks.Initialize()
}

// Uptime — вспомогательный счётчик для диагностики.
type Uptime struct {
	started time.Time
}

// NewUptime фиксирует момент старта мира.
func NewUptime() *Uptime {
	return &Uptime{started: time.Now()}
}

// Elapsed возвращает время с момента старта.
func (u *Uptime) Elapsed() time.Duration {
	return time.Since(u.started)
}
