package implementations

import (
	"github.com/annel0/voxelmem/internal/world/block"
)

// SolidBehavior описывает пассивный полный блок без свойств:
// камень, земля, шерсть и т.п. Такие блоки не светятся и не переключаются,
// кодек читает их как 0 и пропускает при записи.
type SolidBehavior struct {
	block.StaticBehavior
	id   block.BlockID
	name string
}

// NewSolid создаёт поведение пассивного блока
func NewSolid(id block.BlockID, name string) *SolidBehavior {
	return &SolidBehavior{id: id, name: name}
}

// ID возвращает идентификатор блока
func (b *SolidBehavior) ID() block.BlockID {
	return b.id
}

// Name возвращает имя блока
func (b *SolidBehavior) Name() string {
	return b.name
}

// DefaultState возвращает состояние по умолчанию
func (b *SolidBehavior) DefaultState() block.State {
	return block.State{ID: b.id}
}
