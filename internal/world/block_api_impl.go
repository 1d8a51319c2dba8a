package world

import (
	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world/block"
)

// worldBlockAPI реализует block.BlockAPI поверх World
type worldBlockAPI struct {
	world *World
}

// newWorldBlockAPI создает API для обработки обновлений блоков
func newWorldBlockAPI(w *World) block.BlockAPI {
	return &worldBlockAPI{world: w}
}

// GetBlock возвращает состояние ячейки по глобальным координатам
func (api *worldBlockAPI) GetBlock(pos vec.Vec3) block.State {
	return api.world.GetBlock(pos)
}

// IsPowered сообщает, запитан ли блок
func (api *worldBlockAPI) IsPowered(pos vec.Vec3) bool {
	return api.world.IsPowered(pos)
}
