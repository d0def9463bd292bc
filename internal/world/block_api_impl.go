package world

import (
	"github.com/annel0/railverse/internal/vec"
	"github.com/annel0/railverse/internal/world/block"
)

// worldBlockAPI реализует block.BlockAPI поверх WorldManager.
// Все координаты - мировые, перевод в чанки выполняет сам менеджер.
type worldBlockAPI struct {
	world *WorldManager
}

// newWorldBlockAPI создает API для вызовов поведений блоков
func newWorldBlockAPI(world *WorldManager) block.BlockAPI {
	return &worldBlockAPI{world: world}
}

// GetBlockID возвращает ID блока по мировым координатам
func (api *worldBlockAPI) GetBlockID(pos vec.Vec3) block.BlockID {
	return api.world.GetBlockID(pos)
}

// SetBlock устанавливает блок по мировым координатам
func (api *worldBlockAPI) SetBlock(pos vec.Vec3, id block.BlockID) {
	api.world.SetBlock(pos, id)
}

// RemoveBlock ломает блок по мировым координатам
func (api *worldBlockAPI) RemoveBlock(pos vec.Vec3) {
	api.world.RemoveBlock(pos)
}

// GetBlockMetadata возвращает метаданные блока по ключу
func (api *worldBlockAPI) GetBlockMetadata(pos vec.Vec3, key string) interface{} {
	return api.world.GetBlockMetadata(pos, key)
}

// SetBlockMetadata устанавливает метаданные блока с уведомлением соседей
func (api *worldBlockAPI) SetBlockMetadata(pos vec.Vec3, key string, value interface{}) {
	api.world.SetBlockMetadata(pos, key, value)
}

// SetBlockMetadataSilent устанавливает метаданные блока без уведомлений
func (api *worldBlockAPI) SetBlockMetadataSilent(pos vec.Vec3, key string, value interface{}) {
	api.world.SetBlockMetadataSilent(pos, key, value)
}

// IsSolid сообщает, служит ли блок в позиции опорой
func (api *worldBlockAPI) IsSolid(pos vec.Vec3) bool {
	return api.world.IsSolid(pos)
}

// ScheduleUpdateOnce помечает блок для разового обновления в следующем тике
func (api *worldBlockAPI) ScheduleUpdateOnce(pos vec.Vec3) {
	api.world.ScheduleUpdateOnce(pos)
}

// TriggerNeighborUpdates уведомляет соседей блока об изменении
func (api *worldBlockAPI) TriggerNeighborUpdates(pos vec.Vec3) {
	api.world.TriggerNeighborUpdates(pos)
}

// EmitEffect испускает косметический эффект
func (api *worldBlockAPI) EmitEffect(name string, pos vec.Vec3) {
	api.world.EmitEffect(name, pos)
}
