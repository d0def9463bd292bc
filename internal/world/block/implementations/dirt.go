package implementations

import (
	"github.com/annel0/railverse/internal/vec"
	"github.com/annel0/railverse/internal/world/block"
)

// DirtBehavior реализует поведение блока земли
type DirtBehavior struct{}

func (b *DirtBehavior) ID() block.BlockID { return block.DirtBlockID }
func (b *DirtBehavior) Name() string      { return "Dirt" }

// Solid возвращает true, земля служит опорой
func (b *DirtBehavior) Solid() bool { return true }

func (b *DirtBehavior) NeedsTick() bool                             { return false }
func (b *DirtBehavior) TickUpdate(api block.BlockAPI, pos vec.Vec3) {}

func (b *DirtBehavior) CanPlaceAt(api block.BlockAPI, pos vec.Vec3) bool { return true }

func (b *DirtBehavior) OnPlace(api block.BlockAPI, pos vec.Vec3) {
	api.SetBlockMetadata(pos, "moisture", 0)
}

func (b *DirtBehavior) OnBreak(api block.BlockAPI, pos vec.Vec3) {
	api.EmitEffect("particle_dust", pos)
}

func (b *DirtBehavior) OnNeighborChanged(api block.BlockAPI, pos vec.Vec3) {}

func (b *DirtBehavior) CreateMetadata() block.Metadata {
	return block.Metadata{"moisture": 0}
}

// HandleInteraction - простая добыча
func (b *DirtBehavior) HandleInteraction(action string, cur, act map[string]interface{}) (block.BlockID, map[string]interface{}, block.InteractionResult) {
	if action == "mine" || action == "dig" {
		return block.AirBlockID, map[string]interface{}{}, block.InteractionResult{
			Success: true,
			Message: "Земля выкопана",
			Effects: []string{"particle_dust"},
		}
	}
	return block.DirtBlockID, cur, block.InteractionResult{Success: false}
}
