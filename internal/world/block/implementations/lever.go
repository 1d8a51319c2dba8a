package implementations

import (
	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world/block"
)

// LeverBehavior: рычаг, единственная ячейка с возможностью Actuation.
// Запитанный рычаг сильным сигналом питает блок, к которому прикреплён.
type LeverBehavior struct{}

// ID возвращает идентификатор блока
func (b *LeverBehavior) ID() block.BlockID {
	return block.LeverBlockID
}

// Name возвращает имя блока
func (b *LeverBehavior) Name() string {
	return "lever"
}

// DefaultState возвращает выключенный рычаг на стене, смотрящий на север
func (b *LeverBehavior) DefaultState() block.State {
	return block.State{ID: block.LeverBlockID, Face: block.FaceWall, Facing: block.DirNorth}
}

// Properties перечисляет свойства дескриптора
func (b *LeverBehavior) Properties() []block.Property {
	return []block.Property{block.PropFace, block.PropFacing, block.PropPowered}
}

// Luminance: рычаг не светится
func (b *LeverBehavior) Luminance(block.State) (bool, bool) {
	return false, false
}

// Actuation возвращает флаг "запитан" и ориентацию рычага
func (b *LeverBehavior) Actuation(s block.State) (bool, block.Direction, bool) {
	return s.Powered, s.Facing, true
}

// Pull переключает рычаг
func (b *LeverBehavior) Pull(s block.State) block.State {
	s.Powered = !s.Powered
	return s
}

// Emits возвращает направление на опорный блок и наличие сигнала
func (b *LeverBehavior) Emits(s block.State) (block.Direction, bool) {
	return attachedDirection(s), s.Powered
}

// NeighborChanged: рычаг не реагирует на соседей
func (b *LeverBehavior) NeighborChanged(_ block.BlockAPI, _ vec.Vec3, s block.State) block.State {
	return s
}

// attachedDirection возвращает направление на блок, к которому крепится рычаг
func attachedDirection(s block.State) block.Direction {
	switch s.Face {
	case block.FaceFloor:
		return block.DirDown
	case block.FaceCeiling:
		return block.DirUp
	default:
		return s.Facing.Opposite()
	}
}
