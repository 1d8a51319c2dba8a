package world

import (
	"github.com/annel0/voxelmem/internal/world/block"
)

// SectionSize: размер стороны секции (16x16x16)
const SectionSize = 16

// Section: куб 16x16x16 ячеек внутри чанка.
// Индекс ячейки: y<<8 | z<<4 | x.
type Section struct {
	states [SectionSize * SectionSize * SectionSize]block.State
	nonAir int
}

func sectionIndex(x, y, z int) int {
	return (y&15)<<8 | (z&15)<<4 | (x & 15)
}

// Get возвращает состояние ячейки по локальным координатам секции
func (s *Section) Get(x, y, z int) block.State {
	return s.states[sectionIndex(x, y, z)]
}

// Set устанавливает состояние ячейки и возвращает true, если оно изменилось
func (s *Section) Set(x, y, z int, state block.State) bool {
	i := sectionIndex(x, y, z)
	old := s.states[i]
	if old == state {
		return false
	}
	if old.ID == block.AirBlockID {
		s.nonAir++
	}
	if state.ID == block.AirBlockID {
		s.nonAir--
	}
	s.states[i] = state
	return true
}

// IsEmpty сообщает, состоит ли секция только из воздуха
func (s *Section) IsEmpty() bool {
	return s.nonAir == 0
}

// Packed возвращает содержимое секции в упакованном виде (см. block.State.Pack)
func (s *Section) Packed() []uint32 {
	out := make([]uint32, len(s.states))
	for i, st := range s.states {
		out[i] = st.Pack()
	}
	return out
}

// SectionFromPacked восстанавливает секцию из упакованного вида
func SectionFromPacked(packed []uint32) *Section {
	s := &Section{}
	for i := 0; i < len(packed) && i < len(s.states); i++ {
		st := block.UnpackState(packed[i])
		s.states[i] = st
		if st.ID != block.AirBlockID {
			s.nonAir++
		}
	}
	return s
}
