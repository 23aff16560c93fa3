package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/annelo/go-toast-server/internal/gameloop"
	"github.com/annelo/go-toast-server/internal/plugin"
)

// statsSystem counts ticks and periodically logs the number of toasts in play.
type statsSystem struct {
	deps  gameloop.Dependencies
	ticks uint64
}

func (s *statsSystem) Init(deps gameloop.Dependencies) error {
	s.deps = deps
	return nil
}

func (s *statsSystem) Tick(ctx context.Context, dt time.Duration) {
	s.ticks++
	// 20 TPS: log roughly once a minute
	if s.ticks%1200 == 0 {
		log.Printf("[SamplePlugin] toasts in play: %d", len(s.deps.Toasts.Toasts()))
	}
}

func (s *statsSystem) Name() string { return "SampleStatsSystem" }

// Register is invoked by PluginManager to register systems, hooks and commands
func Register(reg plugin.PluginRegistry) {
	// Register a custom game system
	reg.RegisterGameSystem(&statsSystem{})

	// Sample plugin hook: log when a chunk is generated
	reg.RegisterHook(plugin.HookAfterChunkGenerate, func(args ...interface{}) {
		if len(args) == 1 {
			if index, ok := args[0].(int32); ok {
				log.Printf("[SamplePlugin] Chunk generated: %d", index)
			}
		}
	})

	// Sample plugin configuration structure
	type SamplePluginConfig struct {
		Greeting string `yaml:"greeting"`
		Value    int    `yaml:"value"`
	}
	// Register sample config for this plugin
	reg.RegisterPluginConfig("sampleplugin", &SamplePluginConfig{})

	// Sample plugin CLI command: show plugin info
	reg.RegisterCommand("sampleinfo", "Show sample plugin info", func(args []string) (string, error) {
		// Access loaded config
		cfg := reg.PluginConfig("sampleplugin").(*SamplePluginConfig)
		return fmt.Sprintf("Greeting: %s, Value: %d\n", cfg.Greeting, cfg.Value), nil
	})
}

// main is required for the package to link; it is never called when the
// plugin is loaded via plugin.Open.
func main() {}
