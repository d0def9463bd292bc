package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"sync"

	"github.com/annel0/railverse/internal/logging"
	"github.com/annel0/railverse/internal/vec"
	"github.com/annel0/railverse/internal/world"
	"github.com/annel0/railverse/internal/world/block"
	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"
)

// WorldStorage представляет собой хранилище данных мира.
// Рельеф воспроизводится генератором по сиду, поэтому на диск
// попадают только отличия от сгенерированного состояния.
type WorldStorage struct {
	db      *badger.DB
	dbPath  string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	mutex   sync.RWMutex
	isReady bool
}

// ChunkDelta содержит изменения в чанке
type ChunkDelta struct {
	Coords      vec.Vec2              `json:"coords"`
	BlockDeltas map[string]BlockDelta `json:"blocks"` // Ключ - упакованные локальные координаты "x:y:z"
}

// BlockDelta содержит изменения блока
type BlockDelta struct {
	ID      block.BlockID          `json:"id"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// NewWorldStorage создает новое хранилище мира
func NewWorldStorage(dataPath string) (*WorldStorage, error) {
	dbPath := filepath.Join(dataPath, "world")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}

	return &WorldStorage{
		db:      db,
		dbPath:  dbPath,
		encoder: encoder,
		decoder: decoder,
		isReady: true,
	}, nil
}

// Close закрывает хранилище данных
func (ws *WorldStorage) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return nil
	}

	ws.isReady = false
	ws.encoder.Close()
	ws.decoder.Close()
	return ws.db.Close()
}

// chunkKey возвращает ключ чанка в BadgerDB
func chunkKey(coords vec.Vec2) []byte {
	return []byte(fmt.Sprintf("chunk:%d:%d", coords.X, coords.Y))
}

// blockKey упаковывает локальные координаты блока в ключ дельты
func blockKey(local vec.Vec3) string {
	return fmt.Sprintf("%d:%d:%d", local.X, local.Y, local.Z)
}

// SaveChunk сохраняет накопленные изменения чанка, объединяя их с уже
// записанной дельтой. Перезапись всей дельты только новыми изменениями
// потеряла бы то, что было сохранено в прошлые разы.
func (ws *WorldStorage) SaveChunk(chunk *world.Chunk) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	chunk.Mu.RLock()
	if chunk.ChangeCounter == 0 {
		chunk.Mu.RUnlock()
		return nil
	}

	fresh := make(map[string]BlockDelta, len(chunk.Changes))
	for local := range chunk.Changes {
		blockID := chunk.Blocks[local.Y][local.X][local.Z]

		var payload map[string]interface{}
		if metadata, exists := chunk.Metadata[local]; exists && len(metadata) > 0 {
			payload = make(map[string]interface{}, len(metadata))
			for k, v := range metadata {
				payload[k] = v
			}
		}

		fresh[blockKey(local)] = BlockDelta{ID: blockID, Payload: payload}
	}
	coords := chunk.Coords
	chunk.Mu.RUnlock()

	// Объединяем с ранее сохранённой дельтой
	delta, err := ws.LoadChunkDelta(coords)
	if err != nil {
		return err
	}
	for key, blockDelta := range fresh {
		delta.BlockDeltas[key] = blockDelta
	}

	data, err := json.Marshal(delta)
	if err != nil {
		return fmt.Errorf("ошибка сериализации дельты: %w", err)
	}

	compressed := ws.encoder.EncodeAll(data, nil)

	err = ws.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(coords), compressed)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	return nil
}

// LoadChunkDelta загружает дельту чанка. Для неизвестного чанка
// возвращается пустая дельта.
func (ws *WorldStorage) LoadChunkDelta(coords vec.Vec2) (*ChunkDelta, error) {
	var data []byte

	err := ws.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(coords))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})

	if err == badger.ErrKeyNotFound {
		return &ChunkDelta{
			Coords:      coords,
			BlockDeltas: make(map[string]BlockDelta),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	decompressed, err := ws.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки дельты: %w", err)
	}

	var delta ChunkDelta
	if err := json.Unmarshal(decompressed, &delta); err != nil {
		return nil, fmt.Errorf("ошибка десериализации дельты: %w", err)
	}
	if delta.BlockDeltas == nil {
		delta.BlockDeltas = make(map[string]BlockDelta)
	}

	return &delta, nil
}

// ApplyDeltaToChunk применяет сохранённую дельту поверх сгенерированного чанка
func (ws *WorldStorage) ApplyDeltaToChunk(chunk *world.Chunk, delta *ChunkDelta) error {
	if delta == nil || len(delta.BlockDeltas) == 0 {
		return nil
	}

	for key, blockDelta := range delta.BlockDeltas {
		var x, y, z int
		if _, err := fmt.Sscanf(key, "%d:%d:%d", &x, &y, &z); err != nil {
			logging.LogWarn("Ошибка парсинга ключа дельты '%s': %v", key, err)
			continue
		}

		if x < 0 || x >= world.ChunkSize || z < 0 || z >= world.ChunkSize || !world.InBounds(y) {
			logging.LogWarn("Некорректные координаты в дельте: %d,%d,%d", x, y, z)
			continue
		}

		local := vec.Vec3{X: x, Y: y, Z: z}
		chunk.SetBlock(local, blockDelta.ID)
		if len(blockDelta.Payload) > 0 {
			chunk.SetBlockMetadataMap(local, normalizePayload(blockDelta.Payload))
		}
	}

	// Применение дельты не считается новым изменением
	chunk.ResetChanges()
	return nil
}

// normalizePayload возвращает целые значения метаданных к типу int:
// json.Unmarshal отдаёт все числа как float64, а поведения блоков
// (например, ориентация рельса) ожидают int, каким значение и записывалось.
func normalizePayload(payload map[string]interface{}) map[string]interface{} {
	for k, v := range payload {
		if f, ok := v.(float64); ok && f == math.Trunc(f) {
			payload[k] = int(f)
		}
	}
	return payload
}

// snapKey возвращает ключ записи холодного слоя кеша. Префикс отделяет
// эти записи от дельт чанков в том же BadgerDB.
func snapKey(key string) []byte {
	return []byte("snap:" + key)
}

// Load читает запись холодного слоя кеша. Вместе со Store и BatchStore
// делает хранилище мира холодным хранилищем под Redis: промахи кеша
// добираются отсюда, записи стекают сюда в фоне.
func (ws *WorldStorage) Load(ctx context.Context, key string) ([]byte, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var compressed []byte
	err := ws.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			compressed = append([]byte{}, val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("запись %q не найдена", key)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	data, err := ws.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки записи %q: %w", key, err)
	}
	return data, nil
}

// Store записывает одну запись холодного слоя кеша
func (ws *WorldStorage) Store(ctx context.Context, key string, value []byte) error {
	return ws.BatchStore(ctx, map[string][]byte{key: value})
}

// BatchStore записывает пачку записей холодного слоя одной транзакцией
func (ws *WorldStorage) BatchStore(ctx context.Context, items map[string][]byte) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	err := ws.db.Update(func(txn *badger.Txn) error {
		for key, value := range items {
			if err := txn.Set(snapKey(key), ws.encoder.EncodeAll(value, nil)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка записи в BadgerDB: %w", err)
	}
	return nil
}

// LoadAndApplyChunk загружает и применяет дельту чанка
func (ws *WorldStorage) LoadAndApplyChunk(chunk *world.Chunk) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	delta, err := ws.LoadChunkDelta(chunk.Coords)
	if err != nil {
		return err
	}

	return ws.ApplyDeltaToChunk(chunk, delta)
}
