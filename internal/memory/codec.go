package memory

import (
	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world/block"
)

// CellAccessor: доступ кодека к ячейкам мира. Все методы вызываются
// только из горутины симуляции.
type CellAccessor interface {
	// Luminance возвращает true, если ячейка светится; без возможности: false
	Luminance(pos vec.Vec3) bool
	// Actuation возвращает состояние актуатора; ok == false, если возможности нет
	Actuation(pos vec.Vec3) (powered bool, facing block.Direction, ok bool)
	// Toggle переключает актуатор и возвращает новое состояние
	Toggle(pos vec.Vec3, desiredPowered bool) bool
	// RegionGeometry возвращает высоты и ширину региона
	RegionGeometry(region vec.Vec2) (minY, maxY, width int)
}

// WriteStats описывает результат записи
type WriteStats struct {
	Slots   int // Записано байтов
	Toggles int // Переключено рычагов
	Skipped int // Пропущено ячеек без возможности Actuation
}

// cellAt переводит локальные координаты слота в мировые
func cellAt(region vec.Vec2, g Geometry, slot ByteSlot, bit int) vec.Vec3 {
	return vec.Vec3{
		X: region.X*g.Width + slot.Base() + bit,
		Y: slot.Y,
		Z: region.Y*g.Width + slot.Z,
	}
}

// Read читает length байтов региона начиная со слота offset.
// Отсутствующие ячейки читаются как нули. Если порядок слотов закончился
// раньше, результат короче length.
func Read(acc CellAccessor, g Geometry, region vec.Vec2, offset, length int) []byte {
	if length <= 0 {
		return []byte{}
	}
	out := make([]byte, 0, min(length, max(g.Capacity()-offset, 0)))
	i := 0
	for slot := range ScanSlots(ReadSlots, g) {
		if i < offset {
			i++
			continue
		}
		var b byte
		for bit := 0; bit < ByteWidth; bit++ {
			if acc.Luminance(cellAt(region, g, slot, bit)) {
				b |= 1 << bit
			}
		}
		out = append(out, b)
		if len(out) == length {
			break
		}
	}
	return out
}

// Write записывает payload в регион начиная со слота offset.
// Рычаг переключается, только если его состояние отличается от желаемого;
// ячейки без возможности Actuation пропускаются. Слоты после конца payload
// не затрагиваются.
func Write(acc CellAccessor, g Geometry, p Polarity, region vec.Vec2, offset int, payload []byte) WriteStats {
	var stats WriteStats
	if len(payload) == 0 {
		return stats
	}
	i := 0
	for slot := range ScanSlots(WriteSlots, g) {
		if i < offset {
			i++
			continue
		}
		b := payload[stats.Slots]
		for bit := 0; bit < ByteWidth; bit++ {
			pos := cellAt(region, g, slot, bit)
			powered, _, ok := acc.Actuation(pos)
			if !ok {
				stats.Skipped++
				continue
			}
			desired := p.Powered(b&(1<<bit) != 0)
			if desired != powered {
				acc.Toggle(pos, desired)
				stats.Toggles++
			}
		}
		stats.Slots++
		if stats.Slots == len(payload) {
			break
		}
	}
	return stats
}
