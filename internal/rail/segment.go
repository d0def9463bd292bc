package rail

import (
	"github.com/annel0/railverse/internal/vec"
)

// Segment представляет сегмент пути в сетке. Сегментами владеет мир:
// резолвер их не создаёт и не уничтожает, только читает окрестность
// и переписывает ориентацию.
type Segment struct {
	Pos         vec.Vec3
	Orientation Orientation
	CanCurve    bool // false для усиленных рельсов: только прямо или подъём
}

// Grid — интерфейс мира, через который резолвер читает и меняет сетку.
// Реализуется слоем world; резолвер не делает предположений о хранении.
type Grid interface {
	// SegmentAt возвращает сегмент пути в указанной ячейке, если он там есть
	SegmentAt(pos vec.Vec3) (Segment, bool)

	// IsSolid сообщает, может ли блок в указанной ячейке служить опорой
	IsSolid(pos vec.Vec3) bool

	// SetOrientation записывает ориентацию сегмента в сетку.
	// При suppressNotify запись не должна порождать уведомление об изменении
	// блока: фиксация связи сама является реакцией на такое уведомление и
	// иначе зациклилась бы.
	SetOrientation(pos vec.Vec3, o Orientation, suppressNotify bool)

	// RemoveSegment запрашивает удаление сегмента из сетки (слом с дропом).
	// Как именно происходит удаление — дело мира.
	RemoveSegment(pos vec.Vec3)
}
