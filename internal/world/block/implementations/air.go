package implementations

import (
	"github.com/annel0/voxelmem/internal/world/block"
)

// AirBehavior реализует поведение пустого блока (воздуха)
type AirBehavior struct {
	block.StaticBehavior
}

// ID возвращает идентификатор блока
func (b *AirBehavior) ID() block.BlockID {
	return block.AirBlockID
}

// Name возвращает имя блока
func (b *AirBehavior) Name() string {
	return "air"
}

// DefaultState возвращает состояние по умолчанию
func (b *AirBehavior) DefaultState() block.State {
	return block.State{ID: block.AirBlockID}
}
