// Package noisegeneration оборачивает перлин-шум для детерминированной
// расстановки декора по чанкам. Значения кешируются в компактном
// целочисленном представлении.
package noisegeneration

import (
	"fmt"
	"math"
	"sync"

	"github.com/aquilax/go-perlin"
)

// CompactNoise представляет компактное целочисленное представление шума
type CompactNoise int8

// Константы для преобразования между float64 и CompactNoise
const (
	NoiseResolution = 255
	MinNoiseValue   = -1.0
	MaxNoiseValue   = 1.0
)

// FloatToCompact преобразует float64 в CompactNoise
func FloatToCompact(value float64) CompactNoise {
	normalized := (value - MinNoiseValue) / (MaxNoiseValue - MinNoiseValue)
	scaled := normalized * NoiseResolution
	compact := int8(math.Min(127, math.Max(-127, math.Round(scaled)-128)))
	return CompactNoise(compact)
}

// CompactToFloat преобразует CompactNoise обратно в float64
func CompactToFloat(value CompactNoise) float64 {
	scaled := float64(int8(value)) + 127.0
	normalized := scaled / NoiseResolution
	return normalized*(MaxNoiseValue-MinNoiseValue) + MinNoiseValue
}

// Параметры перлин-шума (альфа, бета, число октав)
const (
	noiseAlpha   = 2.0
	noiseBeta    = 2.0
	noiseOctaves = 3
)

// DecorNoise — детерминированный источник шума для декора чанков.
type DecorNoise struct {
	p *perlin.Perlin

	cache     map[string]CompactNoise
	mu        sync.RWMutex
	hitCount  int
	missCount int
}

// NewDecorNoise создаёт источник шума с заданным сидом.
func NewDecorNoise(seed int64) *DecorNoise {
	return &DecorNoise{
		p:     perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed),
		cache: make(map[string]CompactNoise),
	}
}

func cacheKey(x, y float64) string {
	return fmt.Sprintf("%.4f:%.4f", x, y)
}

// At возвращает значение шума в точке, с кешированием.
func (dn *DecorNoise) At(x, y float64) float64 {
	key := cacheKey(x, y)

	dn.mu.RLock()
	compact, exists := dn.cache[key]
	dn.mu.RUnlock()

	if exists {
		dn.mu.Lock()
		dn.hitCount++
		dn.mu.Unlock()
		return CompactToFloat(compact)
	}

	value := dn.p.Noise2D(x, y)

	dn.mu.Lock()
	dn.missCount++
	// Простая стратегия очистки: при достижении лимита сбрасываем кеш
	if len(dn.cache) > 100000 {
		dn.cache = make(map[string]CompactNoise)
	}
	dn.cache[key] = FloatToCompact(value)
	dn.mu.Unlock()

	return value
}

// CacheStats возвращает статистику использования кеша.
func (dn *DecorNoise) CacheStats() map[string]interface{} {
	dn.mu.RLock()
	defer dn.mu.RUnlock()

	total := dn.hitCount + dn.missCount
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(dn.hitCount) / float64(total)
	}
	return map[string]interface{}{
		"size":     len(dn.cache),
		"hits":     dn.hitCount,
		"misses":   dn.missCount,
		"hit_rate": hitRate,
	}
}

// ClearCache очищает кеш и сбрасывает счётчики.
func (dn *DecorNoise) ClearCache() {
	dn.mu.Lock()
	defer dn.mu.Unlock()
	dn.cache = make(map[string]CompactNoise)
	dn.hitCount = 0
	dn.missCount = 0
}
