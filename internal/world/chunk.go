package world

import (
	"sync"

	"github.com/annel0/railverse/internal/vec"
	"github.com/annel0/railverse/internal/world/block"
)

const (
	// ChunkSize - размер чанка по горизонтали (X/Z)
	ChunkSize = 16

	// WorldHeight - число уровней по вертикали
	WorldHeight = 64
)

// Chunk представляет участок мира размером 16x16 колонн высотой WorldHeight.
// Индексация Blocks: [y][x][z] в локальных координатах.
type Chunk struct {
	Coords vec.Vec2 // Координаты чанка в мире (X/Z, делённые на 16)

	Blocks [WorldHeight][ChunkSize][ChunkSize]block.BlockID

	Metadata map[vec.Vec3]map[string]interface{} // Метаданные по локальным координатам
	Changes  map[vec.Vec3]struct{}               // Изменённые блоки с последнего сохранения
	Tickable map[vec.Vec3]struct{}               // Блоки, требующие тиков

	ChangeCounter int          // Счетчик изменений
	Mu            sync.RWMutex // Мьютекс для безопасного доступа
}

// NewChunk создаёт новый чанк с указанными координатами
func NewChunk(coords vec.Vec2) *Chunk {
	return &Chunk{
		Coords:   coords,
		Metadata: make(map[vec.Vec3]map[string]interface{}),
		Changes:  make(map[vec.Vec3]struct{}),
		Tickable: make(map[vec.Vec3]struct{}),
	}
}

// InBounds проверяет, попадает ли вертикальная координата в пределы мира
func InBounds(y int) bool {
	return y >= 0 && y < WorldHeight
}

// GetBlock возвращает ID блока по локальным координатам
func (c *Chunk) GetBlock(local vec.Vec3) block.BlockID {
	if !InBounds(local.Y) {
		return block.AirBlockID
	}
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.Blocks[local.Y][local.X][local.Z]
}

// SetBlock устанавливает блок по локальным координатам
func (c *Chunk) SetBlock(local vec.Vec3, id block.BlockID) {
	if !InBounds(local.Y) {
		return
	}
	c.Mu.Lock()
	defer c.Mu.Unlock()

	c.Blocks[local.Y][local.X][local.Z] = id
	delete(c.Metadata, local) // метаданные принадлежали старому блоку
	c.Changes[local] = struct{}{}
	c.ChangeCounter++
}

// SetBlockMetadata устанавливает метаданные для блока
func (c *Chunk) SetBlockMetadata(local vec.Vec3, key string, value interface{}) {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	if _, exists := c.Metadata[local]; !exists {
		c.Metadata[local] = make(map[string]interface{})
	}

	c.Metadata[local][key] = value
	c.Changes[local] = struct{}{}
	c.ChangeCounter++
}

// SetBlockMetadataMap устанавливает несколько метаданных для блока
func (c *Chunk) SetBlockMetadataMap(local vec.Vec3, metadata map[string]interface{}) {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	if _, exists := c.Metadata[local]; !exists {
		c.Metadata[local] = make(map[string]interface{})
	}

	for k, v := range metadata {
		c.Metadata[local][k] = v
	}
	c.Changes[local] = struct{}{}
	c.ChangeCounter++
}

// GetBlockMetadata возвращает копию всех метаданных блока
func (c *Chunk) GetBlockMetadata(local vec.Vec3) map[string]interface{} {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	metadata, exists := c.Metadata[local]
	if !exists {
		return make(map[string]interface{})
	}

	result := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		result[k] = v
	}
	return result
}

// GetBlockMetadataValue возвращает значение метаданных блока по ключу
func (c *Chunk) GetBlockMetadataValue(local vec.Vec3, key string) (interface{}, bool) {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	metadata, exists := c.Metadata[local]
	if !exists {
		return nil, false
	}
	value, exists := metadata[key]
	return value, exists
}

// ResetChanges очищает список изменений после сохранения
func (c *Chunk) ResetChanges() {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	c.Changes = make(map[vec.Vec3]struct{})
	c.ChangeCounter = 0
}
