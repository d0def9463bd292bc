package eventbus

import (
	"encoding/json"
	"time"

	"github.com/annel0/railverse/internal/vec"
	"github.com/google/uuid"
)

// Типы доменных событий, публикуемых в шину.
const (
	EventTypeBlockSet   = "block_set"   // Установка блока
	EventTypeBlockBreak = "block_break" // Разрушение блока с дропом
	EventTypeEffect     = "effect"      // Косметический эффект
	EventTypeRailBreak  = "rail_break"  // Рельс выпал (снятие или потеря опоры)
	EventTypeChunkSaved = "chunk_saved" // Чанки записаны в хранилище
)

// BlockSetPayload - нагрузка события установки блока
type BlockSetPayload struct {
	Pos     vec.Vec3 `json:"pos"`
	BlockID uint16   `json:"block_id"`
	Chunk   vec.Vec2 `json:"chunk"`
}

// BlockBreakPayload - нагрузка разрушения блока. Для рельсов публикуется
// под типом rail_break, состав нагрузки тот же.
type BlockBreakPayload struct {
	Pos     vec.Vec3 `json:"pos"`
	BlockID uint16   `json:"block_id"`
	Drops   int      `json:"drops"` // Число выпавших предметов
}

// EffectPayload - нагрузка косметического эффекта
type EffectPayload struct {
	Name string   `json:"name"`
	Pos  vec.Vec3 `json:"pos"`
}

// ChunkSavedPayload - нагрузка события сохранения
type ChunkSavedPayload struct {
	Forced bool `json:"forced"`
	Chunks int  `json:"chunks"` // Сколько чанков записано
}

// NewEnvelope собирает конверт события: UUID, штамп времени и
// сериализованная нагрузка.
func NewEnvelope(eventType, source string, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Priority:  3,
		Payload:   data,
		Metadata:  map[string]string{},
	}, nil
}

// DecodePayload разбирает нагрузку конверта в указанную структуру
func (ev *Envelope) DecodePayload(v interface{}) error {
	return json.Unmarshal(ev.Payload, v)
}
