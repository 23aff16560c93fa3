package chunkmanager_test

import (
	"testing"

	"github.com/annelo/go-toast-server/internal/chunkmanager"
	"github.com/annelo/go-toast-server/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ChunkWidth = 1024
	cfg.RenderDistance = 2
	return cfg
}

func residentSet(cm *chunkmanager.ChunkManager) map[int32]bool {
	set := make(map[int32]bool)
	for _, idx := range cm.ResidentIndices() {
		set[idx] = true
	}
	return set
}

func TestChunkManager_Initialize(t *testing.T) {
	cm := chunkmanager.NewChunkManager(testConfig(), 42)

	created := cm.Initialize()
	if len(created) != int(2*chunkmanager.BootstrapRadius+1) {
		t.Fatalf("expected %d bootstrap chunks, got %d", 2*chunkmanager.BootstrapRadius+1, len(created))
	}

	set := residentSet(cm)
	for i := -chunkmanager.BootstrapRadius; i <= chunkmanager.BootstrapRadius; i++ {
		if !set[i] {
			t.Fatalf("bootstrap chunk %d missing", i)
		}
	}
}

func TestChunkManager_ChunkIndexAt(t *testing.T) {
	cm := chunkmanager.NewChunkManager(testConfig(), 42)

	cases := []struct {
		x    float64
		want int32
	}{
		{0, 0},
		{1023, 0},
		{1024, 1},
		{5000, 4},
		{-1, -1}, // floor semantics, not truncation
		{-1024, -1},
		{-1025, -2},
	}
	for _, c := range cases {
		if got := cm.ChunkIndexAt(c.x); got != c.want {
			t.Fatalf("ChunkIndexAt(%v) = %d, want %d", c.x, got, c.want)
		}
	}
}

func TestChunkManager_WindowAndHysteresis(t *testing.T) {
	cm := chunkmanager.NewChunkManager(testConfig(), 42)
	cm.Initialize()

	// Standing at the origin changes nothing: [-2, 2] is already resident
	created, removed := cm.Update(0)
	if len(created) != 0 || len(removed) != 0 {
		t.Fatalf("no window change expected at spawn: created=%d removed=%d", len(created), len(removed))
	}

	// Jump to x=5000 (chunk 4): window becomes [2, 6], eviction keeps
	// distance rd+1, so chunks -2 and -1 go while 2 stays
	created, removed = cm.Update(5000)

	set := residentSet(cm)
	for i := int32(2); i <= 6; i++ {
		if !set[i] {
			t.Fatalf("chunk %d should be resident after move", i)
		}
	}
	if set[-2] || set[-1] {
		t.Fatalf("far chunks should have been evicted")
	}
	if len(created) != 4 {
		t.Fatalf("expected 4 new chunks (3..6), got %d", len(created))
	}

	// Chunks -2, -1 and 0 are farther than rd+1 from chunk 4; chunk 1 sits
	// exactly at the hysteresis boundary and survives
	removedSet := make(map[int32]bool)
	for _, c := range removed {
		removedSet[c.Index] = true
	}
	if !removedSet[-2] || !removedSet[-1] || !removedSet[0] || len(removedSet) != 3 {
		t.Fatalf("eviction mismatch: %v", removedSet)
	}
	if !set[1] {
		t.Fatalf("chunk at distance rd+1 must survive")
	}
}

func TestChunkManager_HysteresisKeepsBoundaryChunk(t *testing.T) {
	cfg := testConfig()
	cm := chunkmanager.NewChunkManager(cfg, 42)
	cm.Update(0) // window [-2, 2]

	// One chunk to the right: window [-1, 3], chunk -2 is at distance 3 ==
	// rd+1 and must survive the hysteresis band
	cm.Update(cfg.ChunkWidth * 1.5)
	set := residentSet(cm)
	if !set[-2] {
		t.Fatalf("chunk at distance rd+1 must not be evicted")
	}

	// Two chunks to the right: distance 4 > rd+1, now it goes
	cm.Update(cfg.ChunkWidth * 2.5)
	set = residentSet(cm)
	if set[-2] {
		t.Fatalf("chunk beyond the hysteresis band must be evicted")
	}
}

func TestChunkManager_NoRegeneration(t *testing.T) {
	cm := chunkmanager.NewChunkManager(testConfig(), 42)
	cm.Update(0)

	before, _ := cm.GetChunk(0)
	created, _ := cm.Update(10)
	if len(created) != 0 {
		t.Fatalf("resident chunks must not regenerate")
	}
	after, _ := cm.GetChunk(0)
	if before != after {
		t.Fatalf("expected the same chunk instance")
	}
}

func TestChunkManager_GroundPlatformsFollowResidency(t *testing.T) {
	cfg := testConfig()
	cm := chunkmanager.NewChunkManager(cfg, 42)
	cm.Update(0)

	grounds := cm.GroundPlatforms()
	if len(grounds) != cm.ResidentChunkCount() {
		t.Fatalf("expected one ground platform per resident chunk, got %d vs %d",
			len(grounds), cm.ResidentChunkCount())
	}

	// Moving far away evicts chunks together with their ground platforms
	cm.Update(cfg.ChunkWidth * 10)
	grounds = cm.GroundPlatforms()
	if len(grounds) != cm.ResidentChunkCount() {
		t.Fatalf("ground platform list out of sync after eviction: %d vs %d",
			len(grounds), cm.ResidentChunkCount())
	}
	for _, g := range grounds {
		if _, err := cm.GetChunk(g.ChunkIndex); err != nil {
			t.Fatalf("ground platform of evicted chunk %d left behind", g.ChunkIndex)
		}
	}
}

func TestChunkManager_DeterministicDecor(t *testing.T) {
	cfg := testConfig()
	a := chunkmanager.NewChunkManager(cfg, 42)
	b := chunkmanager.NewChunkManager(cfg, 42)

	a.Update(0)
	b.Update(0)

	ca, _ := a.GetChunk(1)
	cb, _ := b.GetChunk(1)
	if len(ca.Platforms) != len(cb.Platforms) {
		t.Fatalf("same seed must produce identical geometry: %d vs %d", len(ca.Platforms), len(cb.Platforms))
	}
	for i := range ca.Platforms {
		if ca.Platforms[i].Kind != cb.Platforms[i].Kind || ca.Platforms[i].X != cb.Platforms[i].X {
			t.Fatalf("platform %d differs between identically seeded managers", i)
		}
	}
}

func TestChunkManager_GetChunkNotFound(t *testing.T) {
	cm := chunkmanager.NewChunkManager(testConfig(), 42)

	_, err := cm.GetChunk(100)
	if _, ok := err.(chunkmanager.ErrChunkNotFound); !ok {
		t.Fatalf("expected ErrChunkNotFound, got %v", err)
	}
}
