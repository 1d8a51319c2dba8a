package implementations

import (
	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world/block"
)

// RedstoneWallTorchBehavior: настенный факел, инвертор сигнала.
//
// Факел крепится к блоку позади себя (противоположно facing) и горит,
// только пока этот блок не запитан. Это единственная ячейка с
// возможностью Luminance: по ней кодек читает биты.
type RedstoneWallTorchBehavior struct{}

// ID возвращает идентификатор блока
func (b *RedstoneWallTorchBehavior) ID() block.BlockID {
	return block.RedstoneWallTorchBlockID
}

// Name возвращает имя блока
func (b *RedstoneWallTorchBehavior) Name() string {
	return "redstone_wall_torch"
}

// DefaultState возвращает горящий факел, смотрящий на север
func (b *RedstoneWallTorchBehavior) DefaultState() block.State {
	return block.State{ID: block.RedstoneWallTorchBlockID, Facing: block.DirNorth, Lit: true}
}

// Properties перечисляет свойства дескриптора
func (b *RedstoneWallTorchBehavior) Properties() []block.Property {
	return []block.Property{block.PropFacing, block.PropLit}
}

// Luminance возвращает флаг "горит"
func (b *RedstoneWallTorchBehavior) Luminance(s block.State) (bool, bool) {
	return s.Lit, true
}

// Actuation: факел не переключается извне
func (b *RedstoneWallTorchBehavior) Actuation(block.State) (bool, block.Direction, bool) {
	return false, 0, false
}

// Pull ничего не делает для факела
func (b *RedstoneWallTorchBehavior) Pull(s block.State) block.State {
	return s
}

// Emits: в этой модели факел никого не запитывает
func (b *RedstoneWallTorchBehavior) Emits(block.State) (block.Direction, bool) {
	return 0, false
}

// NeighborChanged пересчитывает свечение по питанию опорного блока
func (b *RedstoneWallTorchBehavior) NeighborChanged(api block.BlockAPI, pos vec.Vec3, s block.State) block.State {
	support := pos.Add(s.Facing.Opposite().Offset())
	s.Lit = !api.IsPowered(support)
	return s
}
