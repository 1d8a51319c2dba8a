// Package memory отображает байтовое адресное пространство на ячейки
// воксельной сетки.
//
// Каждый регион (чанк) рассматривается как массив байтов. Байт занимает
// восемь соседних по X ячеек одного ряда: для чтения это факелы (бит равен
// 1, если факел горит), для записи это рычаги. Порядок обхода слотов задаёт
// ScanSlots, а Read и Write реализуют кодек поверх CellAccessor.
package memory

import (
	"errors"
	"fmt"
)

// ByteWidth: количество ячеек (битов) в одном байтовом слоте
const ByteWidth = 8

// ErrBadGeometry возвращается Validate для несогласованной геометрии
var ErrBadGeometry = errors.New("некорректная геометрия региона")

// Polarity задаёт соответствие бита и состояния рычага
type Polarity uint8

const (
	// Direct: бит 1: рычаг включён
	Direct Polarity = iota
	// Inverted: бит 1: рычаг выключен. В эталонной раскладке рычаг питает
	// блок шерсти, а факел на том же блоке горит, только когда он не запитан.
	Inverted
)

// String возвращает имя полярности
func (p Polarity) String() string {
	if p == Direct {
		return "direct"
	}
	return "inverted"
}

// ParsePolarity разбирает имя полярности из конфигурации
func ParsePolarity(s string) (Polarity, error) {
	switch s {
	case "direct":
		return Direct, nil
	case "inverted", "":
		return Inverted, nil
	}
	return 0, fmt.Errorf("неизвестная полярность %q", s)
}

// Powered возвращает желаемое состояние рычага для бита
func (p Polarity) Powered(bit bool) bool {
	if p == Inverted {
		return !bit
	}
	return bit
}

// Layout: параметры раскладки памяти, не зависящие от размеров мира
type Layout struct {
	ZStride    int      // Шаг групп по оси Z
	WriteDelta int      // Смещение рядов записи относительно рядов чтения
	Polarity   Polarity // Соответствие бита и состояния рычага
}

// ReferenceLayout возвращает раскладку, которую строит generate_memory
func ReferenceLayout() Layout {
	return Layout{ZStride: 4, WriteDelta: 2, Polarity: Inverted}
}

// Geometry описывает один регион памяти
type Geometry struct {
	Width      int // Ширина региона по X и Z
	MinY       int // Нижняя граница высоты (включительно)
	MaxY       int // Верхняя граница высоты (не включительно)
	ZStride    int
	WriteDelta int
}

// NewGeometry объединяет размеры региона и раскладку
func NewGeometry(minY, maxY, width int, layout Layout) Geometry {
	return Geometry{
		Width:      width,
		MinY:       minY,
		MaxY:       maxY,
		ZStride:    layout.ZStride,
		WriteDelta: layout.WriteDelta,
	}
}

// Validate проверяет, что геометрия даёт непустой и согласованный порядок слотов
func (g Geometry) Validate() error {
	switch {
	case g.Width <= 0 || g.Width%ByteWidth != 0:
		return fmt.Errorf("%w: ширина %d не кратна %d", ErrBadGeometry, g.Width, ByteWidth)
	case g.ZStride <= 0 || g.Width%g.ZStride != 0:
		return fmt.Errorf("%w: ширина %d не кратна шагу %d", ErrBadGeometry, g.Width, g.ZStride)
	case g.WriteDelta <= 0 || g.WriteDelta >= g.ZStride:
		return fmt.Errorf("%w: смещение записи %d вне (0, %d)", ErrBadGeometry, g.WriteDelta, g.ZStride)
	case g.MaxY-g.MinY < 2:
		return fmt.Errorf("%w: высота %d..%d меньше двух слоёв", ErrBadGeometry, g.MinY, g.MaxY)
	}
	return nil
}

// Layers возвращает количество слоёв с данными (без нижнего опорного слоя)
func (g Geometry) Layers() int {
	if g.MaxY-g.MinY < 1 {
		return 0
	}
	return g.MaxY - g.MinY - 1
}

// SlotsPerLayer возвращает количество байтовых слотов в одном слое
func (g Geometry) SlotsPerLayer() int {
	if g.ZStride <= 0 {
		return 0
	}
	return (g.Width / g.ZStride) * (g.Width / ByteWidth)
}

// Capacity возвращает ёмкость региона в байтах
func (g Geometry) Capacity() int {
	return g.Layers() * g.SlotsPerLayer()
}
