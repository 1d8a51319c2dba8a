package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxelmem/internal/bridge"
	"github.com/annel0/voxelmem/internal/eventbus"
	"github.com/annel0/voxelmem/internal/memory"
	"github.com/annel0/voxelmem/internal/metrics"
	"github.com/annel0/voxelmem/internal/storage"
	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world"
	"github.com/annel0/voxelmem/internal/world/block"
)

func testOptions() Options {
	return Options{
		World:   world.Config{MinY: 0, MaxY: 4},
		Layout:  memory.ReferenceLayout(),
		TPS:     100,
		Metrics: metrics.New(prometheus.NewRegistry()),
	}
}

func startSession(t *testing.T, opts Options) *Session {
	t.Helper()
	s, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { s.Stop(context.Background()) })
	return s
}

func TestNewRejectsBadGeometry(t *testing.T) {
	opts := testOptions()
	opts.World.MaxY = 1
	_, err := New(opts)
	assert.ErrorIs(t, err, memory.ErrBadGeometry)
}

func TestSessionReadWriteRoundTrip(t *testing.T) {
	s := startSession(t, testOptions())
	ctx := context.Background()
	region := vec.Vec2{X: 2, Y: -1}

	bits, err := s.GenerateMemory(ctx, region)
	require.NoError(t, err)
	assert.Equal(t, 192, bits)

	capacity, err := s.Capacity(ctx, region)
	require.NoError(t, err)
	assert.Equal(t, 24, capacity)

	// Запись и чтение одного вызывающего выполняются по порядку
	require.NoError(t, s.WriteRegion(ctx, region, 0, []byte("voxel")))
	got, err := s.ReadRegion(ctx, region, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("voxel"), got)

	stats, err := s.WriteRegionAndWait(ctx, region, 0, []byte("voxel"))
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Slots)
	assert.Equal(t, 0, stats.Toggles)
}

func TestWriteRegionCopiesPayload(t *testing.T) {
	s := startSession(t, testOptions())
	ctx := context.Background()
	_, err := s.GenerateMemory(ctx, vec.Vec2{})
	require.NoError(t, err)

	payload := []byte{0x01, 0x02}
	require.NoError(t, s.WriteRegion(ctx, vec.Vec2{}, 0, payload))
	payload[0] = 0xFF

	got, err := s.ReadRegion(ctx, vec.Vec2{}, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, got)
}

func TestVoxelPassThrough(t *testing.T) {
	s := startSession(t, testOptions())
	ctx := context.Background()
	pos := vec.Vec3{X: -5, Y: 2, Z: 40}
	state := block.State{ID: block.MagentaWoolBlockID}

	require.NoError(t, s.SetVoxel(ctx, pos, state))
	got, err := s.GetVoxel(ctx, pos)
	require.NoError(t, err)
	assert.Equal(t, state, got)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.ID(), stats.ID)
	assert.Equal(t, 1, stats.Chunks)
}

func TestStoppedSessionRejectsCalls(t *testing.T) {
	s, err := New(testOptions())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))

	ctx := context.Background()
	_, err = s.ReadRegion(ctx, vec.Vec2{}, 0, 1)
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, s.WriteRegion(ctx, vec.Vec2{}, 0, []byte{1}), ErrStopped)
	assert.ErrorIs(t, s.SetVoxel(ctx, vec.Vec3{}, block.State{}), ErrStopped)
	assert.ErrorIs(t, s.Start(ctx), ErrStopped)
	assert.True(t, s.Stopped())

	// Повторная остановка безопасна
	assert.NoError(t, s.Stop(ctx))
}

func TestFeedbackPublishedToBus(t *testing.T) {
	bus := eventbus.NewMemoryBus(64)
	opts := testOptions()
	opts.Bus = bus
	s := startSession(t, opts)
	ctx := context.Background()

	var mu sync.Mutex
	kinds := map[string]int{}
	_, err := bus.Subscribe(ctx, eventbus.Filter{}, func(ctx context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		kinds[ev.EventType]++
		mu.Unlock()
	})
	require.NoError(t, err)

	_, err = s.GenerateMemory(ctx, vec.Vec2{})
	require.NoError(t, err)
	// 0x01 при инвертированной полярности выключает один рычаг
	_, err = s.WriteRegionAndWait(ctx, vec.Vec2{}, 0, []byte{0x01})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return kinds["RegionRegenerated"] == 1 && kinds["LeverClick"] == 1 && kinds["BlockDeactivate"] == 1
	}, time.Second, 5*time.Millisecond)
}

func TestPersistenceAcrossSessions(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := storage.NewBadgerStore(dir)
	require.NoError(t, err)
	opts := testOptions()
	opts.Storage = first
	s1, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, s1.Start(ctx))

	_, err = s1.GenerateMemory(ctx, vec.Vec2{X: 1, Y: 1})
	require.NoError(t, err)
	_, err = s1.WriteRegionAndWait(ctx, vec.Vec2{X: 1, Y: 1}, 3, []byte("saved"))
	require.NoError(t, err)
	require.NoError(t, s1.Stop(ctx))

	second, err := storage.NewBadgerStore(dir)
	require.NoError(t, err)
	opts = testOptions()
	opts.Storage = second
	s2 := startSession(t, opts)

	got, err := s2.ReadRegion(ctx, vec.Vec2{X: 1, Y: 1}, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("saved"), got)
}

func TestRestoreSkipsMismatchedHeight(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewBadgerStore(t.TempDir())
	require.NoError(t, err)

	tall := world.NewChunk(vec.Vec2{X: 2}, 0, 8)
	tall.SetState(0, 1, 0, block.State{ID: block.StoneBlockID})
	fit := world.NewChunk(vec.Vec2{X: 3}, 0, 4)
	fit.SetState(0, 1, 0, block.State{ID: block.StoneBlockID})
	require.NoError(t, store.SaveChunk(ctx, tall))
	require.NoError(t, store.SaveChunk(ctx, fit))

	opts := testOptions()
	opts.Storage = store
	s := startSession(t, opts)

	loaded, err := bridge.ReadThrough(s.bridge, func() []bool {
		_, okTall := s.world.PeekChunk(vec.Vec2{X: 2})
		_, okFit := s.world.PeekChunk(vec.Vec2{X: 3})
		return []bool{okTall, okFit}
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, loaded)
}

func TestAutosave(t *testing.T) {
	store, err := storage.NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	opts := testOptions()
	opts.Storage = store
	opts.AutosaveInterval = 10 * time.Millisecond
	s := startSession(t, opts)
	ctx := context.Background()

	require.NoError(t, s.SetVoxel(ctx, vec.Vec3{X: 1, Y: 1, Z: 1}, block.State{ID: block.StoneBlockID}))

	assert.Eventually(t, func() bool {
		coords, err := store.ListChunks(ctx)
		return err == nil && len(coords) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a, err := New(testOptions())
	require.NoError(t, err)
	b, err := New(testOptions())
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, b.Start(context.Background()))

	r.Add(a)
	r.Add(b)
	assert.Len(t, r.IDs(), 2)
	assert.NotEqual(t, a.ID(), b.ID())

	got, err := r.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	require.NoError(t, r.Remove(context.Background(), a.ID()))
	assert.True(t, a.Stopped())
	_, err = r.Get(a.ID())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.StopAll(context.Background()))
	assert.True(t, b.Stopped())
	assert.Empty(t, r.IDs())
}
