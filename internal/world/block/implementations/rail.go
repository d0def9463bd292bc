package implementations

import (
	"github.com/annel0/railverse/internal/rail"
	"github.com/annel0/railverse/internal/vec"
	"github.com/annel0/railverse/internal/world/block"
)

// MetaOrientation - ключ метаданных, в котором хранится ориентация рельса
const MetaOrientation = "orientation"

// RailBehavior описывает сегмент пути. Обычный рельс умеет поворачивать,
// усиленный - только прямые участки и подъёмы. Вся топологическая логика
// (проверка связей, поиск кандидатов, фиксация ориентации) живёт в пакете
// rail; поведение только транслирует вызовы мира в интерфейс rail.Grid.
type RailBehavior struct {
	id       block.BlockID
	name     string
	canCurve bool
}

// NewRailBehavior создаёт поведение обычного рельса
func NewRailBehavior() *RailBehavior {
	return &RailBehavior{id: block.RailBlockID, name: "Rail", canCurve: true}
}

// NewReinforcedRailBehavior создаёт поведение усиленного рельса
func NewReinforcedRailBehavior() *RailBehavior {
	return &RailBehavior{id: block.ReinforcedRailBlockID, name: "ReinforcedRail", canCurve: false}
}

func (b *RailBehavior) ID() block.BlockID { return b.id }
func (b *RailBehavior) Name() string      { return b.name }

// Solid возвращает false: рельс не является опорой
func (b *RailBehavior) Solid() bool { return false }

func (b *RailBehavior) NeedsTick() bool                             { return false }
func (b *RailBehavior) TickUpdate(api block.BlockAPI, pos vec.Vec3) {}

// CanPlaceAt принимает установку только над опорным блоком
func (b *RailBehavior) CanPlaceAt(api block.BlockAPI, pos vec.Vec3) bool {
	return rail.CanPlace(railGrid{api: api}, pos)
}

// OnPlace вызывается при установке рельса. Ориентацию задаёт установивший
// через метаданные; если её нет, сегмент начинается прямым север-юг.
// Сразу после установки сегмент реагирует на свою окрестность: ищет связи
// с несоединёнными соседями.
func (b *RailBehavior) OnPlace(api block.BlockAPI, pos vec.Vec3) {
	if _, ok := api.GetBlockMetadata(pos, MetaOrientation).(int); !ok {
		api.SetBlockMetadataSilent(pos, MetaOrientation, int(rail.StraightNS))
	}
	api.EmitEffect("particle_rail_place", pos)
	b.OnNeighborChanged(api, pos)
}

// OnBreak вызывается при разрушении рельса
func (b *RailBehavior) OnBreak(api block.BlockAPI, pos vec.Vec3) {
	api.EmitEffect("particle_rail_break", pos)
}

// OnNeighborChanged - точка входа реакции на изменение окрестности
func (b *RailBehavior) OnNeighborChanged(api block.BlockAPI, pos vec.Vec3) {
	g := railGrid{api: api}
	seg, ok := g.SegmentAt(pos)
	if !ok {
		return
	}
	rail.OnNeighborChanged(g, &seg)
}

// CreateMetadata создает начальные метаданные рельса
func (b *RailBehavior) CreateMetadata() block.Metadata {
	return block.Metadata{MetaOrientation: int(rail.StraightNS)}
}

// HandleInteraction - добыча рельса
func (b *RailBehavior) HandleInteraction(action string, cur, act map[string]interface{}) (block.BlockID, map[string]interface{}, block.InteractionResult) {
	if action == "mine" || action == "dig" {
		return block.AirBlockID, map[string]interface{}{}, block.InteractionResult{
			Success: true,
			Message: "Рельс снят",
			Effects: []string{"particle_rail_break"},
		}
	}
	return b.id, cur, block.InteractionResult{Success: false}
}

// railGrid адаптирует block.BlockAPI к интерфейсу rail.Grid
type railGrid struct {
	api block.BlockAPI
}

// RailGridOf возвращает представление мира как путевой сетки.
// Используется снаружи для чтения связей рельсов (например, в REST API).
func RailGridOf(api block.BlockAPI) rail.Grid {
	return railGrid{api: api}
}

// SegmentAt возвращает сегмент пути в ячейке, если там стоит рельс
func (g railGrid) SegmentAt(pos vec.Vec3) (rail.Segment, bool) {
	id := g.api.GetBlockID(pos)
	if id != block.RailBlockID && id != block.ReinforcedRailBlockID {
		return rail.Segment{}, false
	}
	o := rail.StraightNS
	if v, ok := g.api.GetBlockMetadata(pos, MetaOrientation).(int); ok && rail.Orientation(v).Valid() {
		o = rail.Orientation(v)
	}
	return rail.Segment{
		Pos:         pos,
		Orientation: o,
		CanCurve:    id == block.RailBlockID,
	}, true
}

func (g railGrid) IsSolid(pos vec.Vec3) bool {
	return g.api.IsSolid(pos)
}

// SetOrientation записывает ориентацию в метаданные блока. Подавление
// уведомления транслируется в "тихую" запись метаданных.
func (g railGrid) SetOrientation(pos vec.Vec3, o rail.Orientation, suppressNotify bool) {
	if suppressNotify {
		g.api.SetBlockMetadataSilent(pos, MetaOrientation, int(o))
		return
	}
	g.api.SetBlockMetadata(pos, MetaOrientation, int(o))
}

// RemoveSegment ломает рельс: дроп и уведомления делает мир
func (g railGrid) RemoveSegment(pos vec.Vec3) {
	g.api.RemoveBlock(pos)
}
