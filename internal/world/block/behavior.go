package block

import (
	"github.com/annel0/railverse/internal/vec"
)

type Metadata map[string]interface{}

// InteractionResult представляет результат взаимодействия с блоком
type InteractionResult struct {
	Success bool     // Успешно ли выполнено взаимодействие
	Message string   // Сообщение о результате взаимодействия
	Effects []string // Эффекты взаимодействия (опционально)
}

// BlockBehavior определяет поведение блока
type BlockBehavior interface {
	ID() BlockID
	Name() string
	// Solid сообщает, служит ли блок опорой для блоков над ним
	Solid() bool
	NeedsTick() bool
	TickUpdate(api BlockAPI, pos vec.Vec3)
	// CanPlaceAt проверяет, допустима ли установка блока в позицию
	CanPlaceAt(api BlockAPI, pos vec.Vec3) bool
	OnPlace(api BlockAPI, pos vec.Vec3)
	OnBreak(api BlockAPI, pos vec.Vec3)
	// OnNeighborChanged вызывается, когда меняется соседняя ячейка
	OnNeighborChanged(api BlockAPI, pos vec.Vec3)
	CreateMetadata() Metadata
	// Обработка взаимодействия (добыча, использование инструмента)
	HandleInteraction(action string, currentPayload, actionPayload map[string]interface{}) (BlockID, map[string]interface{}, InteractionResult)
}
