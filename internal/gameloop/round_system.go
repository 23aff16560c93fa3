package gameloop

import (
	"context"
	"time"

	"github.com/annelo/go-toast-server/pkg/protocol/game"
)

const (
	// Каждые 100 тиков — раз в 5 секунд при 20 TPS
	roundBroadcastEvery = 100
)

// RoundSystem отвечает за ход времени раунда и периодически оповещает
// клиентов.
type RoundSystem struct {
	deps    Dependencies
	ticks   int64
	elapsed time.Duration
}

func NewRoundSystem() *RoundSystem { return &RoundSystem{} }

func (r *RoundSystem) Name() string { return "round" }

func (r *RoundSystem) Init(deps Dependencies) error {
	r.deps = deps
	return nil
}

func (r *RoundSystem) Tick(ctx context.Context, dt time.Duration) {
	r.ticks++
	r.elapsed += dt

	if r.ticks%roundBroadcastEvery == 0 && r.deps.EmitWorldEvent != nil {
		r.deps.EmitWorldEvent(&game.WorldEvent{
			Type:      game.WorldEventRoundTime,
			RoundTime: r.elapsed.Seconds(),
		})
	}
}

// Elapsed возвращает длительность раунда.
func (r *RoundSystem) Elapsed() time.Duration {
	return r.elapsed
}
