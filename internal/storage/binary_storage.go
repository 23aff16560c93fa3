package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Магические байты и версия бинарного формата
const (
	worldMagic  uint32 = 0x544F5354 // "TOST"
	recordMagic uint32 = 0x54524543 // "TREC"
	formatVer   uint16 = 1
)

// BinaryStorage хранит метаданные мира и рекорды игроков в компактном
// бинарном формате на диске.
type BinaryStorage struct {
	dir       string
	worldName string
	seed      int64

	mu sync.Mutex
}

// NewBinaryStorage создаёт хранилище в указанной директории. Если
// информация о мире ещё не сохранялась, она создаётся с переданным сидом.
func NewBinaryStorage(dir, worldName string, seed int64) (*BinaryStorage, error) {
	if err := os.MkdirAll(filepath.Join(dir, "players"), 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию хранилища: %w", err)
	}

	bs := &BinaryStorage{dir: dir, worldName: worldName, seed: seed}

	// Создаём информацию о мире при первом запуске
	if _, err := bs.LoadWorld(context.Background()); err != nil {
		now := time.Now().Unix()
		info := &WorldInfo{
			Name:      worldName,
			Seed:      seed,
			Version:   fmt.Sprintf("%d", formatVer),
			CreatedAt: now,
		}
		if err := bs.SaveWorld(context.Background(), info); err != nil {
			return nil, err
		}
	}

	return bs, nil
}

func (bs *BinaryStorage) worldPath() string {
	return filepath.Join(bs.dir, bs.worldName+".meta")
}

func (bs *BinaryStorage) playerPath(id string) string {
	// Идентификаторы — UUID, но на всякий случай вычищаем разделители
	safe := strings.ReplaceAll(id, string(os.PathSeparator), "_")
	return filepath.Join(bs.dir, "players", safe+".rec")
}

// writeString пишет строку с длиной-префиксом.
func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint16(len(s)))
	buf.WriteString(s)
}

// readString читает строку с длиной-префиксом.
func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil {
		return "", err
	}
	return string(b), nil
}

// SaveWorld сохраняет общую информацию о мире.
func (bs *BinaryStorage) SaveWorld(ctx context.Context, info *WorldInfo) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	info.LastSaveAt = time.Now().Unix()

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, worldMagic)
	binary.Write(&buf, binary.LittleEndian, formatVer)
	writeString(&buf, info.Name)
	binary.Write(&buf, binary.LittleEndian, info.Seed)
	writeString(&buf, info.Version)
	binary.Write(&buf, binary.LittleEndian, info.CreatedAt)
	binary.Write(&buf, binary.LittleEndian, info.LastSaveAt)

	return atomicWrite(bs.worldPath(), buf.Bytes())
}

// LoadWorld загружает общую информацию о мире.
func (bs *BinaryStorage) LoadWorld(ctx context.Context) (*WorldInfo, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	data, err := os.ReadFile(bs.worldPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrWorldNotFound{}
		}
		return nil, fmt.Errorf("не удалось прочитать информацию о мире: %w", err)
	}

	r := bytes.NewReader(data)
	var magic uint32
	var ver uint16
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil || magic != worldMagic {
		return nil, fmt.Errorf("повреждённый файл мира: неверная сигнатура")
	}
	if err := binary.Read(r, binary.LittleEndian, &ver); err != nil || ver != formatVer {
		return nil, fmt.Errorf("неподдерживаемая версия формата мира: %d", ver)
	}

	info := &WorldInfo{}
	if info.Name, err = readString(r); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &info.Seed); err != nil {
		return nil, err
	}
	if info.Version, err = readString(r); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &info.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &info.LastSaveAt); err != nil {
		return nil, err
	}
	return info, nil
}

// SavePlayerRecord сохраняет рекорды игрока.
func (bs *BinaryStorage) SavePlayerRecord(ctx context.Context, rec *PlayerRecord) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, recordMagic)
	binary.Write(&buf, binary.LittleEndian, formatVer)
	writeString(&buf, rec.ID)
	writeString(&buf, rec.Name)
	binary.Write(&buf, binary.LittleEndian, rec.BestX)
	binary.Write(&buf, binary.LittleEndian, rec.ToastPasses)
	binary.Write(&buf, binary.LittleEndian, rec.LastSeen)

	return atomicWrite(bs.playerPath(rec.ID), buf.Bytes())
}

// LoadPlayerRecord загружает рекорды игрока.
func (bs *BinaryStorage) LoadPlayerRecord(ctx context.Context, id string) (*PlayerRecord, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	return bs.loadRecordFile(bs.playerPath(id), id)
}

func (bs *BinaryStorage) loadRecordFile(path, id string) (*PlayerRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPlayerRecordNotFound{ID: id}
		}
		return nil, fmt.Errorf("не удалось прочитать запись игрока: %w", err)
	}

	r := bytes.NewReader(data)
	var magic uint32
	var ver uint16
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil || magic != recordMagic {
		return nil, fmt.Errorf("повреждённая запись игрока: неверная сигнатура")
	}
	if err := binary.Read(r, binary.LittleEndian, &ver); err != nil || ver != formatVer {
		return nil, fmt.Errorf("неподдерживаемая версия записи игрока: %d", ver)
	}

	rec := &PlayerRecord{}
	if rec.ID, err = readString(r); err != nil {
		return nil, err
	}
	if rec.Name, err = readString(r); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &rec.BestX); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &rec.ToastPasses); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &rec.LastSeen); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListPlayerRecords возвращает все сохранённые рекорды.
func (bs *BinaryStorage) ListPlayerRecords(ctx context.Context) ([]*PlayerRecord, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(bs.dir, "players"))
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать директорию записей: %w", err)
	}

	records := make([]*PlayerRecord, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".rec" {
			continue
		}
		rec, err := bs.loadRecordFile(filepath.Join(bs.dir, "players", e.Name()), e.Name())
		if err != nil {
			// Пропускаем записи, которые не удалось загрузить
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close закрывает хранилище.
func (bs *BinaryStorage) Close() error {
	return nil
}

// atomicWrite пишет файл через временный и переименование.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("не удалось записать файл %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("не удалось переименовать %s: %w", tmp, err)
	}
	return nil
}
