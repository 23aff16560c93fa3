// Package config описывает явную конфигурацию раунда. Конфигурация
// создаётся один раз при старте и передаётся в конструкторы менеджеров,
// глобального изменяемого состояния нет.
package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Config содержит все числовые настройки раунда.
type Config struct {
	// Настройки тоста
	TimeToEject          float64 `yaml:"timeToEject"`          // секунд до принудительного выброса
	EjectImpulseY        float64 `yaml:"ejectImpulseY"`        // вертикальный импульс выброса (px/s)
	ToastOffsetY         float64 `yaml:"toastOffsetY"`         // смещение тоста над владельцем (px)
	PickupCooldownMs     int64   `yaml:"pickupCooldownMs"`     // кулдаун подбора (мс, wall-clock)
	HorizontalMultiplier float64 `yaml:"horizontalMultiplier"` // множитель горизонтальной скорости при выбросе
	NumberOfToasts       int     `yaml:"numberOfToasts"`

	// Настройки бесконечного мира
	ChunkWidth     float64 `yaml:"chunkWidth"`     // ширина чанка (px)
	RenderDistance int32   `yaml:"renderDistance"` // количество чанков с каждой стороны
	GroundHeight   float64 `yaml:"groundHeight"`   // Y-координата земли (px)

	// Настройки физики
	Gravity          float64 `yaml:"gravity"`          // ускорение вниз (px/s^2)
	WorldBoundsX     float64 `yaml:"worldBoundsX"`     // полуширина мира для out-of-bounds (px)
	OutOfBoundsSlack float64 `yaml:"outOfBoundsSlack"` // буфер за границей до сброса (px)

	// Настройки игроков
	MoveSpeed float64 `yaml:"moveSpeed"` // горизонтальная скорость (px/s)
	JumpSpeed float64 `yaml:"jumpSpeed"` // импульс прыжка (px/s)
	MaxJumps  int     `yaml:"maxJumps"`  // прыжков до приземления (2 = двойной прыжок)
}

// Default возвращает конфигурацию по умолчанию.
func Default() *Config {
	return &Config{
		TimeToEject:          3.0,
		EjectImpulseY:        420,
		ToastOffsetY:         24,
		PickupCooldownMs:     500,
		HorizontalMultiplier: 1.5,
		NumberOfToasts:       1,

		ChunkWidth:     1024,
		RenderDistance: 2,
		GroundHeight:   600,

		Gravity:          1200,
		WorldBoundsX:     100000,
		OutOfBoundsSlack: 512,

		MoveSpeed: 260,
		JumpSpeed: 520,
		MaxJumps:  2,
	}
}

// LoadFromFile читает конфигурацию из YAML-файла поверх значений по
// умолчанию.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("не удалось разобрать файл конфигурации: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет числовую корректность конфигурации.
func (c *Config) Validate() error {
	if c.TimeToEject <= 0 {
		return fmt.Errorf("timeToEject должен быть положительным, получено %v", c.TimeToEject)
	}
	if c.PickupCooldownMs < 0 {
		return fmt.Errorf("pickupCooldownMs не может быть отрицательным, получено %v", c.PickupCooldownMs)
	}
	if c.NumberOfToasts < 1 {
		return fmt.Errorf("numberOfToasts должен быть не меньше 1, получено %v", c.NumberOfToasts)
	}
	if c.ChunkWidth <= 0 {
		return fmt.Errorf("chunkWidth должен быть положительным, получено %v", c.ChunkWidth)
	}
	if c.RenderDistance < 1 {
		return fmt.Errorf("renderDistance должен быть не меньше 1, получено %v", c.RenderDistance)
	}
	if c.MaxJumps < 1 {
		return fmt.Errorf("maxJumps должен быть не меньше 1, получено %v", c.MaxJumps)
	}
	return nil
}

// PickupCooldown возвращает кулдаун подбора как time.Duration.
func (c *Config) PickupCooldown() time.Duration {
	return time.Duration(c.PickupCooldownMs) * time.Millisecond
}
