package block

import (
	"github.com/annel0/railverse/internal/vec"
)

// BlockAPI определяет интерфейс для взаимодействия блоков с игровым миром.
// Этот интерфейс предоставляет блокам возможность читать и изменять состояние
// воксельной сетки: получение и установку блоков, работу с метаданными,
// проверку опоры и управление системой обновлений соседей.
type BlockAPI interface {
	// GetBlockID возвращает идентификатор блока в указанной позиции.
	GetBlockID(pos vec.Vec3) BlockID

	// SetBlock устанавливает блок в указанной позиции с уведомлением соседей.
	SetBlock(pos vec.Vec3, id BlockID)

	// RemoveBlock ломает блок: заменяет его воздухом, публикует событие
	// дропа и уведомляет соседей.
	RemoveBlock(pos vec.Vec3)

	// GetBlockMetadata возвращает значение метаданных блока по ключу.
	GetBlockMetadata(pos vec.Vec3, key string) interface{}

	// SetBlockMetadata устанавливает значение метаданных блока по ключу.
	SetBlockMetadata(pos vec.Vec3, key string, value interface{})

	// SetBlockMetadataSilent делает то же, что SetBlockMetadata, но не
	// порождает уведомления об изменении блока. Используется записями,
	// которые сами являются реакцией на такое уведомление.
	SetBlockMetadataSilent(pos vec.Vec3, key string, value interface{})

	// IsSolid сообщает, может ли блок в указанной позиции служить опорой.
	IsSolid(pos vec.Vec3) bool

	// ScheduleUpdateOnce помечает блок для разового обновления в следующем тике.
	// Используется для избежания лишних вычислений при массовых изменениях.
	ScheduleUpdateOnce(pos vec.Vec3)

	// TriggerNeighborUpdates запускает разовое обновление для всех соседних
	// блоков: четырёх горизонтальных, верхнего и нижнего.
	TriggerNeighborUpdates(pos vec.Vec3)

	// EmitEffect испускает косметический эффект (частицы). Чисто
	// декоративный вызов, результат не используется.
	EmitEffect(name string, pos vec.Vec3)
}
