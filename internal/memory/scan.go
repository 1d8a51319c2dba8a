package memory

import "iter"

// Kind выбирает ряды, по которым идёт обход
type Kind uint8

const (
	ReadSlots  Kind = iota // Ряды факелов
	WriteSlots             // Ряды рычагов
)

// String возвращает имя вида слотов
func (k Kind) String() string {
	if k == ReadSlots {
		return "read"
	}
	return "write"
}

// ByteSlot: один байт региона: восемь ячеек ряда (Y, Z),
// начиная с X = Base() в локальных координатах.
type ByteSlot struct {
	Y         int
	Z         int
	ByteIndex int
}

// Base возвращает локальный X младшего бита слота
func (s ByteSlot) Base() int {
	return s.ByteIndex * ByteWidth
}

// ScanSlots возвращает порядок байтовых слотов региона: по высоте снизу вверх
// (нижний опорный слой пропускается), внутри слоя по группам Z, внутри группы
// по индексу байта. Последовательность конечна и может обходиться повторно.
func ScanSlots(kind Kind, g Geometry) iter.Seq[ByteSlot] {
	base := 0
	if kind == WriteSlots {
		base = g.WriteDelta
	}
	groups := 0
	if g.ZStride > 0 {
		groups = g.Width / g.ZStride
	}
	bytesPerRow := g.Width / ByteWidth

	return func(yield func(ByteSlot) bool) {
		for y := g.MinY + 1; y < g.MaxY; y++ {
			for group := 0; group < groups; group++ {
				z := base + group*g.ZStride
				for idx := 0; idx < bytesPerRow; idx++ {
					if !yield(ByteSlot{Y: y, Z: z, ByteIndex: idx}) {
						return
					}
				}
			}
		}
	}
}
