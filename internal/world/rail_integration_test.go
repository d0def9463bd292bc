package world

import (
	"testing"

	"github.com/annel0/railverse/internal/rail"
	"github.com/annel0/railverse/internal/vec"
	"github.com/annel0/railverse/internal/world/block"
	"github.com/annel0/railverse/internal/world/block/implementations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Высота тестовой платформы: заведомо выше сгенерированного рельефа,
// чтобы рельсы взаимодействовали только друг с другом.
const platformY = 9

// buildPlatform выкладывает каменную площадку размером size x size
func buildPlatform(wm *WorldManager, origin vec.Vec3, size int) {
	for x := 0; x < size; x++ {
		for z := 0; z < size; z++ {
			wm.SetBlock(vec.Vec3{X: origin.X + x, Y: origin.Y, Z: origin.Z + z}, block.StoneBlockID)
		}
	}
}

// orientationAt читает ориентацию рельса из метаданных мира
func orientationAt(t *testing.T, wm *WorldManager, pos vec.Vec3) rail.Orientation {
	t.Helper()
	value, ok := wm.GetBlockMetadata(pos, implementations.MetaOrientation).(int)
	require.True(t, ok, "У рельса должна быть записана ориентация")
	return rail.Orientation(value)
}

func TestRail_PlacementDefaultsNorthSouth(t *testing.T) {
	wm := NewWorldManager(1)
	buildPlatform(wm, vec.Vec3{X: 0, Y: platformY, Z: 0}, 4)

	pos := vec.Vec3{X: 1, Y: platformY + 1, Z: 1}
	wm.SetBlock(pos, block.RailBlockID)

	assert.Equal(t, block.RailBlockID, wm.GetBlockID(pos), "Рельс должен установиться на камень")
	assert.Equal(t, rail.StraightNS, orientationAt(t, wm, pos), "Одинокий рельс смотрит на север-юг")
}

func TestRail_TwoRailsFormStraightLine(t *testing.T) {
	// Два соседних по оси X рельса выстраиваются в линию запад-восток
	wm := NewWorldManager(1)
	buildPlatform(wm, vec.Vec3{X: 0, Y: platformY, Z: 0}, 4)

	first := vec.Vec3{X: 1, Y: platformY + 1, Z: 1}
	second := vec.Vec3{X: 2, Y: platformY + 1, Z: 1}

	wm.SetBlock(first, block.RailBlockID)
	wm.SetBlock(second, block.RailBlockID)

	assert.Equal(t, rail.StraightEW, orientationAt(t, wm, first), "Первый рельс должен развернуться в линию")
	assert.Equal(t, rail.StraightEW, orientationAt(t, wm, second), "Второй рельс должен встать в линию")
}

func TestRail_CornerFormsCurve(t *testing.T) {
	// Третий рельс с юга превращает угол в поворот
	wm := NewWorldManager(1)
	buildPlatform(wm, vec.Vec3{X: 0, Y: platformY, Z: 0}, 4)

	corner := vec.Vec3{X: 1, Y: platformY + 1, Z: 1}
	east := vec.Vec3{X: 2, Y: platformY + 1, Z: 1}
	south := vec.Vec3{X: 1, Y: platformY + 1, Z: 2}

	wm.SetBlock(corner, block.RailBlockID)
	wm.SetBlock(east, block.RailBlockID)
	wm.SetBlock(south, block.RailBlockID)

	assert.Equal(t, rail.CurveSE, orientationAt(t, wm, corner), "Угловой рельс должен стать поворотом юг-восток")
	assert.Equal(t, rail.StraightEW, orientationAt(t, wm, east), "Восточный рельс остаётся в линии")
	assert.Equal(t, rail.StraightNS, orientationAt(t, wm, south), "Южный рельс выравнивается на север")
}

func TestRail_SlopeFormsOnLevelChange(t *testing.T) {
	// Рельс уровнем выше втягивает нижнего соседа в подъём
	wm := NewWorldManager(1)

	lowerGround := vec.Vec3{X: 5, Y: platformY, Z: 5}
	upperGround := vec.Vec3{X: 6, Y: platformY + 1, Z: 5}
	wm.SetBlock(lowerGround, block.StoneBlockID)
	wm.SetBlock(upperGround, block.StoneBlockID)

	lowerRail := lowerGround.Up()
	upperRail := upperGround.Up()

	wm.SetBlock(lowerRail, block.RailBlockID)
	wm.SetBlock(upperRail, block.RailBlockID)

	assert.Equal(t, rail.AscendEast, orientationAt(t, wm, lowerRail), "Нижний рельс должен подниматься на восток")
	assert.Equal(t, rail.StraightEW, orientationAt(t, wm, upperRail), "Верхний рельс остаётся горизонтальным")
}

func TestRail_BreaksWithoutSupport(t *testing.T) {
	// Потеря опоры снимает рельс и публикует дроп
	wm := NewWorldManager(1)
	buildPlatform(wm, vec.Vec3{X: 0, Y: platformY, Z: 0}, 4)

	first := vec.Vec3{X: 1, Y: platformY + 1, Z: 1}
	second := vec.Vec3{X: 2, Y: platformY + 1, Z: 1}
	wm.SetBlock(first, block.RailBlockID)
	wm.SetBlock(second, block.RailBlockID)
	drainEvents(wm)

	wm.RemoveBlock(second.Down())

	assert.Equal(t, block.AirBlockID, wm.GetBlockID(second), "Рельс без опоры должен разрушиться")
	assert.Equal(t, block.RailBlockID, wm.GetBlockID(first), "Соседний рельс с опорой остаётся")

	dropped := false
	for _, event := range drainEvents(wm) {
		if breakEvent, ok := event.(BreakEvent); ok && breakEvent.Position == second {
			dropped = true
		}
	}
	assert.True(t, dropped, "Разрушение рельса должно публиковать событие дропа")
}

func TestRail_ReinforcedDoesNotCurve(t *testing.T) {
	// Усиленный рельс не поворачивает: боковой сосед остаётся несвязанным
	wm := NewWorldManager(1)
	buildPlatform(wm, vec.Vec3{X: 0, Y: platformY, Z: 0}, 4)

	center := vec.Vec3{X: 1, Y: platformY + 1, Z: 1}
	south := vec.Vec3{X: 1, Y: platformY + 1, Z: 2}
	east := vec.Vec3{X: 2, Y: platformY + 1, Z: 1}

	wm.SetBlock(center, block.ReinforcedRailBlockID)
	wm.SetBlock(south, block.RailBlockID)

	assert.Equal(t, rail.StraightNS, orientationAt(t, wm, center), "Усиленный рельс связывается по своей оси")
	assert.Equal(t, rail.StraightNS, orientationAt(t, wm, south), "Южный сосед встаёт в ту же ось")

	wm.SetBlock(east, block.RailBlockID)
	assert.Equal(t, rail.StraightNS, orientationAt(t, wm, center), "Усиленный рельс не должен поворачивать к восточному соседу")
}

func TestRail_CannotPlaceWithoutSupport(t *testing.T) {
	wm := NewWorldManager(1)
	buildPlatform(wm, vec.Vec3{X: 0, Y: platformY, Z: 0}, 4)

	assert.True(t, wm.CanPlaceBlock(vec.Vec3{X: 1, Y: platformY + 1, Z: 1}, block.RailBlockID),
		"Над камнем рельс ставить можно")
	assert.False(t, wm.CanPlaceBlock(vec.Vec3{X: 1, Y: platformY + 3, Z: 1}, block.RailBlockID),
		"В воздухе рельс ставить нельзя")
}

func TestRail_OrientationWritesAreSilent(t *testing.T) {
	// Перестройка ориентаций при подключении не порождает каскада событий
	// изменения блоков: фиксируются только сами установки рельсов
	wm := NewWorldManager(1)
	buildPlatform(wm, vec.Vec3{X: 0, Y: platformY, Z: 0}, 4)

	first := vec.Vec3{X: 1, Y: platformY + 1, Z: 1}
	second := vec.Vec3{X: 2, Y: platformY + 1, Z: 1}
	wm.SetBlock(first, block.RailBlockID)
	drainEvents(wm)

	wm.SetBlock(second, block.RailBlockID)

	for _, event := range drainEvents(wm) {
		if blockEvent, ok := event.(BlockEvent); ok {
			assert.NotEqual(t, EventTypeBlockChange, blockEvent.EventType,
				"Запись ориентации должна идти без уведомлений")
		}
	}

	// При этом ориентации реально изменились
	assert.Equal(t, rail.StraightEW, orientationAt(t, wm, first))
	assert.Equal(t, rail.StraightEW, orientationAt(t, wm, second))
}
