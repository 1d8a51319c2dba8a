package world

import (
	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world/block"
)

// Шаг слоя памяти по оси Z: факел, шерсть, рычаг, строительные леса
const layoutStride = 4

// layoutRow возвращает состояние ячейки ряда z%4 в позиции x
func layoutRow(row, x int) block.State {
	switch row {
	case 0:
		return block.State{ID: block.RedstoneWallTorchBlockID, Facing: block.DirNorth}
	case 1:
		if x >= 8 {
			return block.State{ID: block.MagentaWoolBlockID}
		}
		return block.State{ID: block.OrangeWoolBlockID}
	case 2:
		return block.State{ID: block.LeverBlockID, Face: block.FaceWall, Facing: block.DirSouth, Powered: true}
	default:
		return block.State{ID: block.ScaffoldingBlockID}
	}
}

// GenerateMemory размещает в регионе структуру памяти: нижний слой из белой
// шерсти, выше в каждом слое ряды z%4 = факел, шерсть, рычаг, леса.
// Рычаги включены, факелы погашены, то есть все биты равны нулю.
// Возвращает количество битов (факелов) в регионе.
func (w *World) GenerateMemory(coords vec.Vec2) int {
	chunk := w.Chunk(coords)
	bits := 0

	for y := w.minY; y < w.maxY; y++ {
		for z := 0; z < ChunkWidth; z++ {
			for x := 0; x < ChunkWidth; x++ {
				state := block.State{ID: block.WhiteWoolBlockID}
				if y != w.minY {
					state = layoutRow(z%layoutStride, x)
					if state.ID == block.RedstoneWallTorchBlockID {
						bits++
					}
				}
				chunk.SetState(x, y, z, state)
			}
		}
	}

	w.emit(Feedback{Kind: FeedbackRegionRegenerated, Region: coords})
	return bits
}
