package gameloop

import (
	"context"
	"expvar"
	"time"

	"github.com/annelo/go-toast-server/internal/chunkmanager"
	"github.com/annelo/go-toast-server/pkg/protocol/game"
)

// StreamSystem кормит менеджер чанков отслеживаемой позицией — центроидом
// X-координат всех игроков — и транслирует клиентам события появления и
// выгрузки чанков.
type StreamSystem struct {
	deps Dependencies
}

func NewStreamSystem() *StreamSystem { return &StreamSystem{} }

func (s *StreamSystem) Name() string { return "stream" }

func (s *StreamSystem) Init(deps Dependencies) error {
	s.deps = deps
	return nil
}

func (s *StreamSystem) Tick(ctx context.Context, dt time.Duration) {
	trackedX, ok := s.deps.Players.CentroidX()
	if !ok {
		// Мир без игроков не двигается
		return
	}

	if s.deps.Hooks.Before != nil {
		s.deps.Hooks.Before(s.deps.Chunks.ChunkIndexAt(trackedX))
	}

	created, removed := s.deps.Chunks.Update(trackedX)

	for _, chunk := range created {
		if s.deps.Hooks.After != nil {
			s.deps.Hooks.After(chunk.Index)
		}
		if c, ok := expvar.Get("chunks_generated").(*expvar.Int); ok && c != nil {
			c.Add(1)
		}
		s.emitChunkEvent(game.WorldEventChunkGenerated, chunk)
	}
	for _, chunk := range removed {
		s.emitChunkEvent(game.WorldEventChunkRemoved, chunk)
	}
}

func (s *StreamSystem) emitChunkEvent(eventType string, chunk *chunkmanager.WorldChunk) {
	if s.deps.EmitWorldEvent == nil {
		return
	}

	ev := &game.WorldEvent{
		Type:       eventType,
		ChunkIndex: chunk.Index,
	}
	if eventType == game.WorldEventChunkGenerated {
		for _, p := range chunk.Platforms {
			ev.Platforms = append(ev.Platforms, p.ToInfo())
		}
	}
	s.deps.EmitWorldEvent(ev)
}
