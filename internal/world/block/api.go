package block

import (
	"github.com/annel0/voxelmem/internal/vec"
)

// BlockAPI определяет интерфейс, через который блоки читают состояние мира
// при обработке обновлений соседей. Все вызовы выполняются в горутине
// симуляции.
type BlockAPI interface {
	// GetBlock возвращает состояние ячейки; для отсутствующей структуры: воздух.
	GetBlock(pos vec.Vec3) State

	// IsPowered сообщает, запитан ли блок в позиции pos каким-либо соседом.
	IsPowered(pos vec.Vec3) bool
}
