package noisegeneration_test

import (
	"math"
	"testing"

	"github.com/annelo/go-toast-server/internal/noisegeneration"
)

func TestCompactRoundTrip(t *testing.T) {
	values := []float64{-1.0, -0.5, 0.0, 0.35, 0.99}
	for _, v := range values {
		compact := noisegeneration.FloatToCompact(v)
		back := noisegeneration.CompactToFloat(compact)
		// 8-bit quantization: tolerance of one step
		if math.Abs(back-v) > 2.0/noisegeneration.NoiseResolution {
			t.Fatalf("round trip of %v drifted to %v", v, back)
		}
	}
}

func TestDecorNoise_Deterministic(t *testing.T) {
	a := noisegeneration.NewDecorNoise(42)
	b := noisegeneration.NewDecorNoise(42)

	for i := 0; i < 10; i++ {
		x := float64(i) * 0.37
		if a.At(x, 0.5) != b.At(x, 0.5) {
			t.Fatalf("same seed must produce the same noise at %v", x)
		}
	}

	c := noisegeneration.NewDecorNoise(7)
	same := true
	for i := 0; i < 10; i++ {
		x := float64(i) * 0.37
		if a.At(x, 0.5) != c.At(x, 0.5) {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different seeds should diverge somewhere")
	}
}

func TestDecorNoise_CacheStats(t *testing.T) {
	dn := noisegeneration.NewDecorNoise(42)

	// Access the same point multiple times to generate hits
	for i := 0; i < 5; i++ {
		dn.At(10.0, 20.0)
	}

	stats := dn.CacheStats()
	if stats["hits"].(int) == 0 {
		t.Fatalf("expected some cache hits")
	}
	if stats["misses"].(int) != 1 {
		t.Fatalf("expected a single miss, got %v", stats["misses"])
	}

	dn.ClearCache()
	stats = dn.CacheStats()
	if stats["size"].(int) != 0 || stats["hits"].(int) != 0 {
		t.Fatalf("ClearCache did not reset stats: %v", stats)
	}
}
