package implementations

import "github.com/annel0/voxelmem/internal/world/block"

// Регистрируем все типы блоков при импорте пакета
func init() {
	// Базовые блоки
	block.Register(&AirBehavior{})
	block.Register(NewSolid(block.StoneBlockID, "stone"))
	block.Register(NewSolid(block.GrassBlockID, "grass_block"))
	block.Register(NewSolid(block.DirtBlockID, "dirt"))

	// Каркас ячейки памяти
	block.Register(NewSolid(block.WhiteWoolBlockID, "white_wool"))
	block.Register(NewSolid(block.OrangeWoolBlockID, "orange_wool"))
	block.Register(NewSolid(block.MagentaWoolBlockID, "magenta_wool"))
	block.Register(NewSolid(block.ScaffoldingBlockID, "scaffolding"))

	// Сигнальные блоки
	block.Register(&RedstoneWallTorchBehavior{})
	block.Register(&LeverBehavior{})
}
