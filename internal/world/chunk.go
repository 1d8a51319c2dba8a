package world

import (
	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world/block"
)

// ChunkWidth: горизонтальный размер чанка (региона) в блоках
const ChunkWidth = 16

// Chunk представляет столб мира размером 16 x (maxY-minY) x 16.
// Это Region в терминах памяти: кодек адресует байты внутри одного чанка.
//
// Секции создаются лениво; nil-секция: неинициализированный под-объём,
// все ячейки которого читаются как воздух.
type Chunk struct {
	Coords   vec.Vec2   // Координаты чанка в мире
	MinY     int        // Нижняя граница по высоте (включительно)
	MaxY     int        // Верхняя граница по высоте (не включительно)
	Sections []*Section // Секции снизу вверх

	ChangeCounter int // Счетчик изменений с последнего сохранения
}

// NewChunk создаёт пустой чанк с указанными координатами и высотами
func NewChunk(coords vec.Vec2, minY, maxY int) *Chunk {
	count := (maxY - minY + SectionSize - 1) / SectionSize
	if count < 0 {
		count = 0
	}
	return &Chunk{
		Coords:   coords,
		MinY:     minY,
		MaxY:     maxY,
		Sections: make([]*Section, count),
	}
}

// sectionFor возвращает индекс секции и локальный y для мировой высоты y
func (c *Chunk) sectionFor(y int) (idx, localY int, ok bool) {
	if y < c.MinY || y >= c.MaxY {
		return 0, 0, false
	}
	rel := y - c.MinY
	return rel / SectionSize, rel % SectionSize, true
}

// HasSection сообщает, инициализирован ли под-объём, содержащий высоту y
func (c *Chunk) HasSection(y int) bool {
	idx, _, ok := c.sectionFor(y)
	return ok && c.Sections[idx] != nil
}

// GetState возвращает состояние по локальным x, z и мировой высоте y
func (c *Chunk) GetState(x, y, z int) block.State {
	idx, ly, ok := c.sectionFor(y)
	if !ok || c.Sections[idx] == nil {
		return block.State{}
	}
	return c.Sections[idx].Get(x, ly, z)
}

// SetState устанавливает состояние и возвращает true, если ячейка изменилась.
// Отсутствующая секция создаётся при первой записи не-воздуха.
func (c *Chunk) SetState(x, y, z int, state block.State) bool {
	idx, ly, ok := c.sectionFor(y)
	if !ok {
		return false
	}

	section := c.Sections[idx]
	if section == nil {
		if state.ID == block.AirBlockID {
			return false
		}
		section = &Section{}
		c.Sections[idx] = section
	}

	if !section.Set(x, ly, z, state) {
		return false
	}
	c.ChangeCounter++
	return true
}

// HasChanges возвращает true, если в чанке есть несохранённые изменения
func (c *Chunk) HasChanges() bool {
	return c.ChangeCounter > 0
}

// ClearChanges сбрасывает счетчик изменений
func (c *Chunk) ClearChanges() {
	c.ChangeCounter = 0
}

// Clone создаёт глубокую копию чанка для передачи за пределы горутины симуляции
func (c *Chunk) Clone() *Chunk {
	clone := &Chunk{
		Coords:        c.Coords,
		MinY:          c.MinY,
		MaxY:          c.MaxY,
		Sections:      make([]*Section, len(c.Sections)),
		ChangeCounter: c.ChangeCounter,
	}
	for i, s := range c.Sections {
		if s != nil {
			cp := *s
			clone.Sections[i] = &cp
		}
	}
	return clone
}
