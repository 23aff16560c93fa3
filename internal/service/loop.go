package service

import (
	"context"

	"github.com/annelo/go-toast-server/internal/gameloop"
	"github.com/annelo/go-toast-server/internal/plugin"
)

// Start инициализирует мир и запускает игровую петлю. Блокируется до
// отмены контекста.
func (s *GameService) Start(ctx context.Context) error {
	// Стартовое окно чанков вокруг нуля
	initial := s.chunkManager.Initialize()
	s.logger.Infof("Мир инициализирован, стартовых чанков: %d", len(initial))

	deps := gameloop.Dependencies{
		Cfg:             s.cfg,
		Players:         s.playerManager,
		Toasts:          s.toastManager,
		Chunks:          s.chunkManager,
		EmitWorldEvent:  s.broadcastWorldEvent,
		EmitToastTimers: s.broadcastToastTimers,
		Hooks: gameloop.ChunkHooks{
			Before: func(index int32) { s.runHooks(plugin.HookBeforeChunkGenerate, index) },
			After:  func(index int32) { s.runHooks(plugin.HookAfterChunkGenerate, index) },
		},
	}

	s.loop = gameloop.NewLoop(tickDuration, deps, s.registry.GameSystems()...)

	s.logger.Infof("Игровая петля запущена, тик %s", tickDuration)
	s.loop.Run(ctx)
	return nil
}

// runHooks вызывает все обработчики указанного типа хука.
func (s *GameService) runHooks(hook plugin.HookType, args ...interface{}) {
	for _, fn := range s.registry.Hooks(hook) {
		fn(args...)
	}
}
