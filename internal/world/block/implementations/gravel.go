package implementations

import (
	"github.com/annel0/railverse/internal/vec"
	"github.com/annel0/railverse/internal/world/block"
)

// GravelBehavior описывает сыпучий блок: гравий служит опорой, но при
// потере блока под собой осыпается на уровень ниже. Осыпание идёт через
// обычный SetBlock, поэтому соседи (в том числе рельсы сверху) получают
// уведомление и успевают среагировать на потерю опоры.
type GravelBehavior struct{}

func (b *GravelBehavior) ID() block.BlockID { return block.GravelBlockID }
func (b *GravelBehavior) Name() string      { return "Gravel" }

func (b *GravelBehavior) Solid() bool { return true }

func (b *GravelBehavior) NeedsTick() bool                             { return false }
func (b *GravelBehavior) TickUpdate(api block.BlockAPI, pos vec.Vec3) {}

func (b *GravelBehavior) CanPlaceAt(api block.BlockAPI, pos vec.Vec3) bool { return true }

func (b *GravelBehavior) OnPlace(api block.BlockAPI, pos vec.Vec3) {
	// Сразу проверяем, есть ли под нами опора
	b.OnNeighborChanged(api, pos)
}

func (b *GravelBehavior) OnBreak(api block.BlockAPI, pos vec.Vec3) {
	api.EmitEffect("particle_dust", pos)
}

// OnNeighborChanged осыпает гравий вниз, если под ним появилась пустота
func (b *GravelBehavior) OnNeighborChanged(api block.BlockAPI, pos vec.Vec3) {
	below := pos.Down()
	if api.GetBlockID(below) != block.AirBlockID {
		return
	}
	api.SetBlock(pos, block.AirBlockID)
	api.SetBlock(below, block.GravelBlockID)
	api.EmitEffect("particle_dust", below)
}

func (b *GravelBehavior) CreateMetadata() block.Metadata {
	return block.Metadata{}
}

// HandleInteraction - простая добыча
func (b *GravelBehavior) HandleInteraction(action string, cur, act map[string]interface{}) (block.BlockID, map[string]interface{}, block.InteractionResult) {
	if action == "mine" || action == "dig" {
		return block.AirBlockID, map[string]interface{}{}, block.InteractionResult{
			Success: true,
			Message: "Гравий собран",
			Effects: []string{"particle_dust"},
		}
	}
	return block.GravelBlockID, cur, block.InteractionResult{Success: false}
}
