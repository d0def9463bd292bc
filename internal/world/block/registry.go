package block

var registry = make(map[BlockID]BlockBehavior)

// Register добавляет поведение блока в регистр
func Register(id BlockID, behavior BlockBehavior) {
	registry[id] = behavior
}

// Get возвращает поведение для указанного ID
func Get(id BlockID) (BlockBehavior, bool) {
	behavior, exists := registry[id]
	return behavior, exists
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := registry[id]
	return exists
}

// IsSolidID сообщает, является ли блок с данным ID опорным.
// Неизвестные ID считаются неопорными.
func IsSolidID(id BlockID) bool {
	behavior, exists := registry[id]
	return exists && behavior.Solid()
}

// BlockID представляет идентификатор блока
type BlockID uint16

// Константы ID блоков
const (
	// Базовые типы блоков
	AirBlockID    BlockID = iota // 0
	StoneBlockID                 // 1
	DirtBlockID                  // 2
	GravelBlockID                // 3

	// Для возможности расширения оставляем промежутки между категориями

	// Путевые блоки (начиная с 100)
	RailBlockID           BlockID = 100 // Обычный рельс, умеет поворачивать
	ReinforcedRailBlockID BlockID = 101 // Усиленный рельс: только прямо или подъём
)
