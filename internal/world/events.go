package world

import (
	"github.com/annel0/railverse/internal/vec"
)

// EventType определяет тип события
type EventType uint8

const (
	EventTypeBlockSet    EventType = iota // Установка блока
	EventTypeBlockChange                  // Изменение блока
	EventTypeBlockBreak                   // Разрушение блока с выпадением предмета
	EventTypeEffect                       // Визуальный эффект (частицы, звук)
	EventTypeTick                         // Игровой тик
	EventTypeSave                         // Сохранение
)

// Event представляет собой интерфейс для всех событий
type Event interface {
	GetType() EventType
}

// BlockEvent представляет событие, связанное с блоком
type BlockEvent struct {
	EventType   EventType
	Position    vec.Vec3    // Мировые координаты блока
	Block       Block       // Блок
	SourceChunk vec.Vec2    // Координаты чанка
	Data        interface{} // Дополнительные данные события
}

// GetType возвращает тип события
func (e BlockEvent) GetType() EventType {
	return e.EventType
}

// BreakEvent представляет разрушение блока: предмет выпадает в мир
type BreakEvent struct {
	Position vec.Vec3      // Мировые координаты разрушенного блока
	BlockID  uint16        // ID разрушенного блока
	Drops    []interface{} // Выпавшие предметы
}

// GetType возвращает тип события
func (e BreakEvent) GetType() EventType {
	return EventTypeBlockBreak
}

// EffectEvent представляет визуальный эффект в точке мира
type EffectEvent struct {
	Name     string   // Имя эффекта
	Position vec.Vec3 // Мировые координаты
}

// GetType возвращает тип события
func (e EffectEvent) GetType() EventType {
	return EventTypeEffect
}

// SaveEvent представляет событие сохранения мира
type SaveEvent struct {
	Forced bool // Принудительное сохранение
	Saved  int  // Сколько чанков записано
}

// GetType возвращает тип события
func (e SaveEvent) GetType() EventType {
	return EventTypeSave
}

// TickEvent представляет событие игрового тика
type TickEvent struct {
	TickID    uint64  // Номер тика
	DeltaTime float64 // Время, прошедшее с предыдущего тика (в секундах)
}

// GetType возвращает тип события
func (e TickEvent) GetType() EventType {
	return EventTypeTick
}
