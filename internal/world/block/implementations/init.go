package implementations

import "github.com/annel0/railverse/internal/world/block"

// Регистрируем все типы блоков при импорте пакета
func init() {
	// Базовые блоки
	block.Register(block.AirBlockID, &AirBehavior{})
	block.Register(block.StoneBlockID, &StoneBehavior{})
	block.Register(block.DirtBlockID, &DirtBehavior{})
	block.Register(block.GravelBlockID, &GravelBehavior{})

	// Путевые блоки
	block.Register(block.RailBlockID, NewRailBehavior())
	block.Register(block.ReinforcedRailBlockID, NewReinforcedRailBehavior())
}
