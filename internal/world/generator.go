package world

import (
	"math/rand"

	"github.com/annel0/railverse/internal/util"
	"github.com/annel0/railverse/internal/vec"
	"github.com/annel0/railverse/internal/world/block"
)

// Константы высот для генерации
const (
	BaseHeight    = 1 // Минимальная высота поверхности
	HeightRange   = 6 // Разброс высот поверхности
	GravelChance  = 0.04
	SurfaceLayers = 1 // Толщина слоя грунта над камнем
)

// WorldGenerator генерирует ландшафт мира
type WorldGenerator struct {
	Seed       int64   // Сид для генерации шума
	NoiseScale float64 // Масштаб основного шума (высота)
	noise      *util.Noise
}

// NewWorldGenerator создаёт новый генератор мира
func NewWorldGenerator(seed int64) *WorldGenerator {
	return &WorldGenerator{
		Seed:       seed,
		NoiseScale: 0.05, // Настройка сглаженности ландшафта
		noise:      util.NewNoise(seed),
	}
}

// GenerateChunk генерирует чанк по его координатам
func (wg *WorldGenerator) GenerateChunk(coords vec.Vec2) *Chunk {
	chunk := NewChunk(coords)

	// Локальный генератор случайных чисел для детерминированности:
	// уникальный сид на основе глобального сида и координат чанка
	chunkSeed := wg.Seed + int64(coords.X*31) + int64(coords.Y*17)
	rng := rand.New(rand.NewSource(chunkSeed))

	globalStartX := coords.X << 4
	globalStartZ := coords.Y << 4

	for x := 0; x < ChunkSize; x++ {
		for z := 0; z < ChunkSize; z++ {
			globalX := globalStartX + x
			globalZ := globalStartZ + z

			noiseX := float64(globalX) * wg.NoiseScale
			noiseZ := float64(globalZ) * wg.NoiseScale

			// Высота поверхности на основе шума Перлина
			height := BaseHeight + int(wg.noise.At2D(noiseX, noiseZ)*HeightRange)
			if height >= WorldHeight {
				height = WorldHeight - 1
			}

			// Колонна: камень снизу, грунт на поверхности,
			// изредка карманы гравия
			for y := 0; y <= height; y++ {
				id := block.StoneBlockID
				if height-y < SurfaceLayers {
					id = block.DirtBlockID
				}
				if rng.Float64() < GravelChance {
					id = block.GravelBlockID
				}
				chunk.Blocks[y][x][z] = id
			}
		}
	}

	return chunk
}
