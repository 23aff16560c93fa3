// Package chunkmanager поддерживает скользящее окно чанков бесконечного
// мира вокруг отслеживаемой горизонтальной позиции. Объём живой геометрии
// пропорционален дальности прорисовки, а не пройденной дистанции.
package chunkmanager

import (
	"math"
	"sync"

	"github.com/annelo/go-toast-server/internal/config"
	"github.com/annelo/go-toast-server/internal/noisegeneration"
	"github.com/annelo/go-toast-server/internal/platform"
)

// BootstrapRadius — радиус стартовой генерации вокруг спавна. Это
// фиксированная константа начальной загрузки, отдельная ручка от
// RenderDistance: значения совпадают исторически, но логически это разные
// параметры.
const BootstrapRadius int32 = 2

// ErrChunkNotFound возвращается при обращении к нерезидентному чанку.
type ErrChunkNotFound struct {
	Index int32
}

func (e ErrChunkNotFound) Error() string {
	return "чанк не найден"
}

// WorldChunk — один фиксированный по ширине срез мира.
type WorldChunk struct {
	Index     int32
	StartX    float64
	EndX      float64
	Platforms []*platform.Platform
	Generated bool
}

// ChunkManager управляет чанками бесконечного мира.
type ChunkManager struct {
	cfg   *config.Config
	noise *noisegeneration.DecorNoise

	mu     sync.RWMutex
	chunks map[int32]*WorldChunk

	// Глобальный список платформ земли для проверки контакта тоста.
	groundPlatforms []*platform.Platform

	generatedTotal int
	removedTotal   int
}

// NewChunkManager создает новый экземпляр менеджера чанков.
func NewChunkManager(cfg *config.Config, seed int64) *ChunkManager {
	return &ChunkManager{
		cfg:    cfg,
		noise:  noisegeneration.NewDecorNoise(seed),
		chunks: make(map[int32]*WorldChunk),
	}
}

// Initialize безусловно генерирует чанки стартового диапазона
// [-BootstrapRadius, BootstrapRadius] вокруг спавна.
func (cm *ChunkManager) Initialize() []*WorldChunk {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	created := make([]*WorldChunk, 0, 2*BootstrapRadius+1)
	for i := -BootstrapRadius; i <= BootstrapRadius; i++ {
		if chunk := cm.generateChunkLocked(i); chunk != nil {
			created = append(created, chunk)
		}
	}
	return created
}

// Update пересчитывает окно чанков вокруг отслеживаемой позиции.
// Генерация работает в окне ±RenderDistance, выгрузка — строго за
// пределами ±(RenderDistance+1): гистерезис в один чанк гасит дёргание
// на границе чанков. Возвращает созданные и удалённые чанки.
func (cm *ChunkManager) Update(trackedX float64) (created, removed []*WorldChunk) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	current := cm.chunkIndexLocked(trackedX)
	rd := cm.cfg.RenderDistance

	for i := current - rd; i <= current+rd; i++ {
		if chunk := cm.generateChunkLocked(i); chunk != nil {
			created = append(created, chunk)
		}
	}

	for idx, chunk := range cm.chunks {
		dist := idx - current
		if dist < 0 {
			dist = -dist
		}
		if dist > rd+1 {
			cm.removeChunkLocked(chunk)
			removed = append(removed, chunk)
		}
	}

	return created, removed
}

// ChunkIndexAt возвращает индекс чанка для мировой X-координаты.
func (cm *ChunkManager) ChunkIndexAt(x float64) int32 {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.chunkIndexLocked(x)
}

func (cm *ChunkManager) chunkIndexLocked(x float64) int32 {
	return int32(math.Floor(x / cm.cfg.ChunkWidth))
}

// generateChunkLocked создаёт чанк, если он ещё не резидентен.
// Резидентные индексы никогда не регенерируются.
func (cm *ChunkManager) generateChunkLocked(index int32) *WorldChunk {
	if _, exists := cm.chunks[index]; exists {
		return nil
	}

	startX := float64(index) * cm.cfg.ChunkWidth
	chunk := &WorldChunk{
		Index:  index,
		StartX: startX,
		EndX:   startX + cm.cfg.ChunkWidth,
	}

	// Одна платформа земли на всю ширину чанка. Регистрируется и как
	// принадлежащая чанку (для выгрузки), и в глобальном списке земли
	// (для сброса тоста по контакту).
	ground := platform.NewGround(index, startX, cm.cfg.ChunkWidth, cm.cfg.GroundHeight)
	chunk.Platforms = append(chunk.Platforms, ground)
	cm.groundPlatforms = append(cm.groundPlatforms, ground)

	// Детерминированный декор по шуму
	for _, p := range cm.decorForChunk(index, startX) {
		chunk.Platforms = append(chunk.Platforms, p)
	}

	chunk.Generated = true
	cm.chunks[index] = chunk
	cm.generatedTotal++
	return chunk
}

// decorForChunk расставляет декоративные объекты внутри чанка по
// перлин-шуму, детерминированно для данного сида.
func (cm *ChunkManager) decorForChunk(index int32, startX float64) []*platform.Platform {
	var decor []*platform.Platform

	const slots = 4
	slotWidth := cm.cfg.ChunkWidth / slots
	for s := 0; s < slots; s++ {
		x := startX + slotWidth*(float64(s)+0.5)
		n := cm.noise.At(x/cm.cfg.ChunkWidth, 0.5)
		switch {
		case n > 0.35:
			decor = append(decor, platform.NewDecor(index, platform.KindBush, x, cm.cfg.GroundHeight-28))
		case n < -0.35:
			decor = append(decor, platform.NewDecor(index, platform.KindCloud, x, cm.cfg.GroundHeight-320))
		}
	}
	return decor
}

// removeChunkLocked выгружает чанк: освобождает его платформы и убирает
// их из глобального списка земли.
func (cm *ChunkManager) removeChunkLocked(chunk *WorldChunk) {
	owned := make(map[string]struct{}, len(chunk.Platforms))
	for _, p := range chunk.Platforms {
		owned[p.ID] = struct{}{}
	}

	kept := cm.groundPlatforms[:0]
	for _, p := range cm.groundPlatforms {
		if _, ok := owned[p.ID]; !ok {
			kept = append(kept, p)
		}
	}
	cm.groundPlatforms = kept

	delete(cm.chunks, chunk.Index)
	cm.removedTotal++
}

// GetChunk возвращает резидентный чанк по индексу.
func (cm *ChunkManager) GetChunk(index int32) (*WorldChunk, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	chunk, exists := cm.chunks[index]
	if !exists {
		return nil, ErrChunkNotFound{Index: index}
	}
	return chunk, nil
}

// ResidentChunkCount возвращает число резидентных чанков (диагностика).
func (cm *ChunkManager) ResidentChunkCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.chunks)
}

// ResidentIndices возвращает индексы резидентных чанков.
func (cm *ChunkManager) ResidentIndices() []int32 {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	indices := make([]int32, 0, len(cm.chunks))
	for idx := range cm.chunks {
		indices = append(indices, idx)
	}
	return indices
}

// GroundPlatforms возвращает снимок глобального списка платформ земли.
// Реализует worldinterfaces.GroundPlatformSource.
func (cm *ChunkManager) GroundPlatforms() []*platform.Platform {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return append([]*platform.Platform(nil), cm.groundPlatforms...)
}

// Stats возвращает счётчики генерации (диагностика).
func (cm *ChunkManager) Stats() (generated, removed, resident int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.generatedTotal, cm.removedTotal, len(cm.chunks)
}

// NoiseCacheStats возвращает статистику кеша шума.
func (cm *ChunkManager) NoiseCacheStats() map[string]interface{} {
	return cm.noise.CacheStats()
}
