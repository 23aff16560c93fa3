// Package storage отвечает за долговременное хранение метаданных мира и
// рекордов игроков. Чанки не сохраняются: геометрия бесконечного мира
// детерминированно выводится из индекса чанка и сида.
package storage

import "context"

// WorldStorage представляет интерфейс для хранения данных игрового мира
type WorldStorage interface {
	// SaveWorld сохраняет общую информацию о мире
	SaveWorld(ctx context.Context, info *WorldInfo) error

	// LoadWorld загружает общую информацию о мире
	// Возвращает ошибку типа ErrWorldNotFound, если мир ещё не сохранялся
	LoadWorld(ctx context.Context) (*WorldInfo, error)

	// SavePlayerRecord сохраняет рекорды игрока
	SavePlayerRecord(ctx context.Context, rec *PlayerRecord) error

	// LoadPlayerRecord загружает рекорды игрока, если существуют
	// Возвращает ошибку типа ErrPlayerRecordNotFound, если записи нет
	LoadPlayerRecord(ctx context.Context, id string) (*PlayerRecord, error)

	// ListPlayerRecords возвращает все сохранённые рекорды
	ListPlayerRecords(ctx context.Context) ([]*PlayerRecord, error)

	// Close закрывает хранилище и освобождает ресурсы
	Close() error
}

// WorldInfo содержит общую информацию о игровом мире
type WorldInfo struct {
	Name       string // Название мира
	Seed       int64  // Сид для генерации
	Version    string // Версия формата сохранения
	CreatedAt  int64  // Время создания (Unix timestamp)
	LastSaveAt int64  // Время последнего сохранения (Unix timestamp)
}

// PlayerRecord описывает сохраняемые рекорды игрока
type PlayerRecord struct {
	ID          string  // Уникальный идентификатор игрока
	Name        string  // Имя игрока
	BestX       float64 // Максимальная достигнутая X-координата
	ToastPasses int64   // Сколько раз игрок успешно передал тост
	LastSeen    int64   // Последнее время выхода (Unix)
}

// ErrWorldNotFound возвращается, когда информация о мире не найдена
type ErrWorldNotFound struct{}

func (e ErrWorldNotFound) Error() string {
	return "информация о мире не найдена в хранилище"
}

// ErrPlayerRecordNotFound возвращается, когда запись игрока не найдена
type ErrPlayerRecordNotFound struct {
	ID string
}

func (e ErrPlayerRecordNotFound) Error() string {
	return "запись игрока не найдена в хранилище"
}
