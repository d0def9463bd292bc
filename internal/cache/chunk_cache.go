package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/annel0/railverse/internal/vec"
	"github.com/annel0/railverse/internal/world"
	"github.com/annel0/railverse/internal/world/block"
)

// ChunkSnapshot - сериализуемый снимок чанка для горячего кеша.
// Хранит только непустые блоки: типичный чанк почти целиком воздух.
type ChunkSnapshot struct {
	Coords vec.Vec2        `json:"coords"`
	Tick   uint64          `json:"tick"`
	Blocks []BlockSnapshot `json:"blocks"`
}

// BlockSnapshot - один блок снимка в локальных координатах чанка
type BlockSnapshot struct {
	Pos     vec.Vec3               `json:"pos"`
	ID      block.BlockID          `json:"id"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// ChunkCache - доменная обёртка над CacheRepo для снимков чанков.
// Снимки раздаются REST API без обращения к менеджеру мира.
type ChunkCache struct {
	repo CacheRepo
	ttl  time.Duration
}

// NewChunkCache создаёт кеш снимков чанков с указанным TTL
func NewChunkCache(repo CacheRepo, ttl time.Duration) *ChunkCache {
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return &ChunkCache{repo: repo, ttl: ttl}
}

// snapshotKey возвращает ключ снимка чанка
func snapshotKey(coords vec.Vec2) string {
	return fmt.Sprintf("chunk_snapshot:%d:%d", coords.X, coords.Y)
}

// SnapshotOf строит снимок из живого чанка
func SnapshotOf(chunk *world.Chunk, tick uint64) *ChunkSnapshot {
	chunk.Mu.RLock()
	defer chunk.Mu.RUnlock()

	snapshot := &ChunkSnapshot{
		Coords: chunk.Coords,
		Tick:   tick,
	}

	for y := 0; y < world.WorldHeight; y++ {
		for x := 0; x < world.ChunkSize; x++ {
			for z := 0; z < world.ChunkSize; z++ {
				id := chunk.Blocks[y][x][z]
				if id == block.AirBlockID {
					continue
				}

				local := vec.Vec3{X: x, Y: y, Z: z}
				blockSnapshot := BlockSnapshot{Pos: local, ID: id}
				if metadata, exists := chunk.Metadata[local]; exists && len(metadata) > 0 {
					blockSnapshot.Payload = make(map[string]interface{}, len(metadata))
					for k, v := range metadata {
						blockSnapshot.Payload[k] = v
					}
				}

				snapshot.Blocks = append(snapshot.Blocks, blockSnapshot)
			}
		}
	}

	return snapshot
}

// Get возвращает снимок чанка из кеша. При промахе возвращает ErrCacheMiss.
func (cc *ChunkCache) Get(ctx context.Context, coords vec.Vec2) (*ChunkSnapshot, error) {
	data, err := cc.repo.Get(ctx, snapshotKey(coords))
	if err != nil {
		return nil, err
	}

	var snapshot ChunkSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		// Битая запись: убираем её и считаем промахом
		_ = cc.repo.Delete(ctx, snapshotKey(coords))
		return nil, ErrCacheMiss
	}
	return &snapshot, nil
}

// Put сохраняет снимок чанка в кеш
func (cc *ChunkCache) Put(ctx context.Context, snapshot *ChunkSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return cc.repo.Set(ctx, snapshotKey(snapshot.Coords), data, cc.ttl)
}

// Invalidate сбрасывает снимок чанка после изменения блоков в нём
func (cc *ChunkCache) Invalidate(ctx context.Context, coords vec.Vec2) error {
	return cc.repo.Invalidate(ctx, snapshotKey(coords))
}
