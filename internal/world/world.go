package world

import (
	"sort"

	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world/block"
	_ "github.com/annel0/voxelmem/internal/world/block/implementations"
)

// maxUpdateDepth ограничивает цепочку обновлений соседей от одного изменения
const maxUpdateDepth = 4

// Config задаёт геометрию мира
type Config struct {
	MinY    int               // Нижняя граница высоты (включительно)
	MaxY    int               // Верхняя граница высоты (не включительно)
	Terrain *TerrainGenerator // Генератор ландшафта для новых чанков (может быть nil)
}

// World владеет всеми ячейками сетки.
//
// World не содержит мьютексов: все методы должны вызываться только из
// горутины симуляции (см. пакет bridge). Другие горутины получают доступ
// к миру исключительно через задачи моста.
type World struct {
	minY, maxY int
	chunks     map[vec.Vec2]*Chunk
	terrain    *TerrainGenerator
	feedback   FeedbackSink

	currentTick  uint64
	totalToggles uint64
}

// NewWorld создаёт пустой мир с указанной геометрией
func NewWorld(cfg Config) *World {
	return &World{
		minY:    cfg.MinY,
		maxY:    cfg.MaxY,
		chunks:  make(map[vec.Vec2]*Chunk),
		terrain: cfg.Terrain,
	}
}

// SetFeedbackSink устанавливает получателя побочных эффектов
func (w *World) SetFeedbackSink(sink FeedbackSink) {
	w.feedback = sink
}

// MinY возвращает нижнюю границу высоты
func (w *World) MinY() int { return w.minY }

// MaxY возвращает верхнюю границу высоты
func (w *World) MaxY() int { return w.maxY }

// RegionGeometry возвращает геометрию региона (minY, maxY, ширина)
func (w *World) RegionGeometry(vec.Vec2) (minY, maxY, width int) {
	return w.minY, w.maxY, ChunkWidth
}

// Tick обрабатывает один тик симуляции
func (w *World) Tick(tickID uint64) {
	w.currentTick = tickID
}

// CurrentTick возвращает номер последнего обработанного тика
func (w *World) CurrentTick() uint64 {
	return w.currentTick
}

// TotalToggles возвращает количество выполненных переключений актуаторов
func (w *World) TotalToggles() uint64 {
	return w.totalToggles
}

// PeekChunk возвращает чанк, не создавая его
func (w *World) PeekChunk(coords vec.Vec2) (*Chunk, bool) {
	c, ok := w.chunks[coords]
	return c, ok
}

// Chunk возвращает чанк, создавая (и генерируя ландшафт) при необходимости
func (w *World) Chunk(coords vec.Vec2) *Chunk {
	if c, ok := w.chunks[coords]; ok {
		return c
	}
	c := NewChunk(coords, w.minY, w.maxY)
	if w.terrain != nil {
		w.terrain.Generate(c)
	}
	w.chunks[coords] = c
	return c
}

// ChunkCount возвращает количество загруженных чанков
func (w *World) ChunkCount() int {
	return len(w.chunks)
}

// PutChunk заменяет чанк целиком (восстановление из хранилища)
func (w *World) PutChunk(c *Chunk) {
	w.chunks[c.Coords] = c
}

// DirtyChunks возвращает копии изменённых чанков и сбрасывает их счетчики.
// Копии безопасно передавать в другие горутины.
func (w *World) DirtyChunks() []*Chunk {
	var out []*Chunk
	for _, c := range w.chunks {
		if !c.HasChanges() {
			continue
		}
		out = append(out, c.Clone())
		c.ClearChanges()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Coords.X != out[j].Coords.X {
			return out[i].Coords.X < out[j].Coords.X
		}
		return out[i].Coords.Y < out[j].Coords.Y
	})
	return out
}

// GetBlock возвращает состояние ячейки. Отсутствующие чанки и секции
// читаются как воздух и не создаются.
func (w *World) GetBlock(pos vec.Vec3) block.State {
	c, ok := w.chunks[pos.Region(ChunkWidth)]
	if !ok {
		return block.State{}
	}
	x, z := pos.Local(ChunkWidth)
	return c.GetState(x, pos.Y, z)
}

// SetBlock устанавливает состояние ячейки и уведомляет соседей
func (w *World) SetBlock(pos vec.Vec3, state block.State) {
	w.setAndUpdate(pos, state, 0)
}

// setRaw записывает состояние без обновления соседей
func (w *World) setRaw(pos vec.Vec3, state block.State) bool {
	if pos.Y < w.minY || pos.Y >= w.maxY {
		return false
	}
	x, z := pos.Local(ChunkWidth)
	return w.Chunk(pos.Region(ChunkWidth)).SetState(x, pos.Y, z, state)
}

// setAndUpdate записывает состояние и рассылает обновления соседям,
// а если блок запитывает опору: и соседям опоры
func (w *World) setAndUpdate(pos vec.Vec3, state block.State, depth int) {
	old := w.GetBlock(pos)
	if !w.setRaw(pos, state) {
		return
	}
	if depth >= maxUpdateDepth {
		return
	}

	w.updateNeighbors(pos, depth)
	for _, s := range [2]block.State{old, state} {
		behavior, ok := s.Behavior()
		if !ok {
			continue
		}
		if dir, on := behavior.Emits(s); on {
			w.updateNeighbors(pos.Add(dir.Offset()), depth)
			break
		}
	}
}

// updateNeighbors вызывает NeighborChanged у всех соседей позиции pos
func (w *World) updateNeighbors(pos vec.Vec3, depth int) {
	api := newWorldBlockAPI(w)
	for _, dir := range block.AllDirections {
		n := pos.Add(dir.Offset())
		state := w.GetBlock(n)
		if state.ID == block.AirBlockID {
			continue
		}
		behavior, ok := state.Behavior()
		if !ok {
			continue
		}
		if next := behavior.NeighborChanged(api, n, state); next != state {
			w.setAndUpdate(n, next, depth+1)
		}
	}
}

// IsPowered сообщает, запитан ли блок каким-либо соседним источником
func (w *World) IsPowered(pos vec.Vec3) bool {
	for _, dir := range block.AllDirections {
		n := pos.Add(dir.Offset())
		state := w.GetBlock(n)
		behavior, ok := state.Behavior()
		if !ok {
			continue
		}
		if toward, on := behavior.Emits(state); on && n.Add(toward.Offset()) == pos {
			return true
		}
	}
	return false
}

// Luminance возвращает true, если ячейка обладает возможностью Luminance и горит
func (w *World) Luminance(pos vec.Vec3) bool {
	state := w.GetBlock(pos)
	behavior, ok := state.Behavior()
	if !ok {
		return false
	}
	lit, ok := behavior.Luminance(state)
	return ok && lit
}

// Actuation возвращает состояние актуатора; ok == false, если возможности нет
func (w *World) Actuation(pos vec.Vec3) (powered bool, facing block.Direction, ok bool) {
	state := w.GetBlock(pos)
	behavior, exists := state.Behavior()
	if !exists {
		return false, 0, false
	}
	return behavior.Actuation(state)
}

// Toggle переключает актуатор в позиции pos, если его состояние отличается
// от желаемого, и сообщает о побочных эффектах (щелчок, игровое событие).
// Возвращает итоговое состояние "запитан".
func (w *World) Toggle(pos vec.Vec3, desiredPowered bool) bool {
	state := w.GetBlock(pos)
	behavior, ok := state.Behavior()
	if !ok {
		return false
	}
	powered, _, ok := behavior.Actuation(state)
	if !ok || powered == desiredPowered {
		return powered
	}

	next := behavior.Pull(state)
	w.setAndUpdate(pos, next, 0)
	w.totalToggles++

	powered, _, _ = behavior.Actuation(next)
	pitch := float32(0.5)
	kind := FeedbackBlockDeactivate
	if powered {
		pitch = 0.6
		kind = FeedbackBlockActivate
	}
	region := pos.Region(ChunkWidth)
	w.emit(Feedback{Kind: FeedbackLeverClick, Pos: pos, Region: region, Pitch: pitch})
	w.emit(Feedback{Kind: kind, Pos: pos, Region: region})
	return powered
}

func (w *World) emit(fb Feedback) {
	if w.feedback == nil {
		return
	}
	fb.Tick = w.currentTick
	w.feedback.Emit(fb)
}
