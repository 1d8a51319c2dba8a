package memory

import (
	"github.com/annel0/voxelmem/internal/vec"
)

// Store привязывает кодек к конкретному миру и раскладке.
// Как и сам мир, Store используется только из горутины симуляции.
type Store struct {
	acc    CellAccessor
	layout Layout
}

// NewStore создаёт хранилище байтов поверх мира
func NewStore(acc CellAccessor, layout Layout) *Store {
	return &Store{acc: acc, layout: layout}
}

// Layout возвращает раскладку памяти
func (s *Store) Layout() Layout {
	return s.layout
}

// Geometry возвращает геометрию региона
func (s *Store) Geometry(region vec.Vec2) Geometry {
	minY, maxY, width := s.acc.RegionGeometry(region)
	return NewGeometry(minY, maxY, width, s.layout)
}

// Capacity возвращает ёмкость региона в байтах
func (s *Store) Capacity(region vec.Vec2) int {
	return s.Geometry(region).Capacity()
}

// ReadRegion читает length байтов региона начиная с offset
func (s *Store) ReadRegion(region vec.Vec2, offset, length int) []byte {
	return Read(s.acc, s.Geometry(region), region, offset, length)
}

// WriteRegion записывает payload в регион начиная с offset
func (s *Store) WriteRegion(region vec.Vec2, offset int, payload []byte) WriteStats {
	return Write(s.acc, s.Geometry(region), s.layout.Polarity, region, offset, payload)
}
