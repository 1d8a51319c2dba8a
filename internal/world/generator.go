package world

import (
	"github.com/aquilax/go-perlin"

	"github.com/annel0/voxelmem/internal/world/block"
)

// Параметры шума для генерации ландшафта
const (
	perlinAlpha   = 2.0 // Сглаживание шума
	perlinBeta    = 2.0 // Частота шума
	perlinOctaves = 3   // Количество октав
)

// TerrainGenerator заполняет новые чанки простым ландшафтом.
// Ландшафт декоративный: структура памяти перезаписывает его целиком.
type TerrainGenerator struct {
	Seed       int64   // Сид для генерации шума
	NoiseScale float64 // Масштаб шума (высота)
	BaseHeight int     // Средняя высота поверхности над MinY
	Amplitude  int     // Разброс высоты поверхности

	noise *perlin.Perlin
}

// NewTerrainGenerator создаёт генератор ландшафта
func NewTerrainGenerator(seed int64) *TerrainGenerator {
	return &TerrainGenerator{
		Seed:       seed,
		NoiseScale: 0.05,
		BaseHeight: 64,
		Amplitude:  16,
		noise:      perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed),
	}
}

// Height возвращает высоту поверхности (относительно MinY) в колонне x, z
func (g *TerrainGenerator) Height(globalX, globalZ int) int {
	n := g.noise.Noise2D(float64(globalX)*g.NoiseScale, float64(globalZ)*g.NoiseScale)
	// Noise2D возвращает значение в диапазоне от -1 до 1
	return g.BaseHeight + int(n*float64(g.Amplitude))
}

// Generate заполняет чанк камнем, землёй и травой до высоты поверхности
func (g *TerrainGenerator) Generate(c *Chunk) {
	startX := c.Coords.X * ChunkWidth
	startZ := c.Coords.Y * ChunkWidth

	for z := 0; z < ChunkWidth; z++ {
		for x := 0; x < ChunkWidth; x++ {
			top := c.MinY + g.Height(startX+x, startZ+z)
			if top >= c.MaxY {
				top = c.MaxY - 1
			}
			for y := c.MinY; y <= top; y++ {
				id := block.StoneBlockID
				switch {
				case y == top:
					id = block.GrassBlockID
				case y >= top-3:
					id = block.DirtBlockID
				}
				c.SetState(x, y, z, block.State{ID: id})
			}
		}
	}
	c.ClearChanges()
}
