package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world"
	"github.com/annel0/voxelmem/internal/world/block"
)

func newTestChunk(coords vec.Vec2) *world.Chunk {
	c := world.NewChunk(coords, -64, 320)
	c.SetState(1, -64, 2, block.State{ID: block.WhiteWoolBlockID})
	c.SetState(15, 100, 15, block.State{ID: block.LeverBlockID, Face: block.FaceWall, Facing: block.DirSouth, Powered: true})
	c.SetState(0, 319, 0, block.State{ID: block.RedstoneWallTorchBlockID, Facing: block.DirNorth, Lit: true})
	return c
}

func assertSameChunk(t *testing.T, want, got *world.Chunk) {
	t.Helper()
	assert.Equal(t, want.Coords, got.Coords)
	assert.Equal(t, want.MinY, got.MinY)
	assert.Equal(t, want.MaxY, got.MaxY)
	require.Len(t, got.Sections, len(want.Sections))
	for i := range want.Sections {
		assert.Equal(t, want.Sections[i] == nil, got.Sections[i] == nil, "секция %d", i)
	}
	assert.Equal(t, want.GetState(1, -64, 2), got.GetState(1, -64, 2))
	assert.Equal(t, want.GetState(15, 100, 15), got.GetState(15, 100, 15))
	assert.Equal(t, want.GetState(0, 319, 0), got.GetState(0, 319, 0))
	assert.False(t, got.HasChanges())
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := newTestChunk(vec.Vec2{X: -3, Y: 7})

	data, err := EncodeChunk(c)
	require.NoError(t, err)

	restored, err := DecodeChunk(data)
	require.NoError(t, err)
	assertSameChunk(t, c, restored)
}

func TestSnapshotCorrupt(t *testing.T) {
	_, err := DecodeChunk([]byte("not a snapshot"))
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}

func TestSnapshotHeightMismatch(t *testing.T) {
	require.NoError(t, initCodec())

	for _, h := range []header{
		{Magic: snapshotMagic, MinY: math.MinInt32, MaxY: math.MaxInt32, Sections: 1},
		{Magic: snapshotMagic, MinY: 10, MaxY: 0, Sections: 0},
		{Magic: snapshotMagic, MinY: 0, MaxY: 32, Sections: 3},
	} {
		var buf bytes.Buffer
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, h))
		_, err := DecodeChunk(encoder.EncodeAll(buf.Bytes(), nil))
		assert.ErrorIs(t, err, ErrCorruptSnapshot, "высота %d..%d", h.MinY, h.MaxY)
	}
}

func TestChunkKey(t *testing.T) {
	key := chunkKey(vec.Vec2{X: -1, Y: 12})
	assert.Equal(t, "region:-1:12", key)

	coords, err := parseChunkKey(key)
	require.NoError(t, err)
	assert.Equal(t, vec.Vec2{X: -1, Y: 12}, coords)

	_, err = parseChunkKey("junk")
	assert.Error(t, err)
}

// exerciseStore проверяет общий контракт Store
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.LoadChunk(ctx, vec.Vec2{X: 1, Y: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	a := newTestChunk(vec.Vec2{X: 0, Y: 0})
	b := newTestChunk(vec.Vec2{X: 5, Y: -2})
	require.NoError(t, s.SaveChunk(ctx, a))
	require.NoError(t, s.SaveChunk(ctx, b))

	// Повторное сохранение заменяет снимок
	b.SetState(3, 3, 3, block.State{ID: block.StoneBlockID})
	require.NoError(t, s.SaveChunk(ctx, b))

	coords, err := s.ListChunks(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []vec.Vec2{{X: 0, Y: 0}, {X: 5, Y: -2}}, coords)

	loaded, err := s.LoadChunk(ctx, vec.Vec2{X: 5, Y: -2})
	require.NoError(t, err)
	assertSameChunk(t, b, loaded)
	assert.Equal(t, block.StoneBlockID, loaded.GetState(3, 3, 3).ID)

	all, err := LoadAll(ctx, s)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBadgerStore(t *testing.T) {
	s, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)

	exerciseStore(t, s)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.SaveChunk(context.Background(), newTestChunk(vec.Vec2{})), ErrClosed)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedisStore(context.Background(), &RedisConfig{Addr: mr.Addr(), KeyPrefix: "test:"})
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
	assert.True(t, mr.Exists("test:region:0:0"))
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), Options{Backend: BackendNone})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = Open(context.Background(), Options{Backend: BackendBadger, Path: t.TempDir()})
	require.NoError(t, err)
	require.NotNil(t, s)
	s.Close()

	_, err = Open(context.Background(), Options{Backend: "floppy"})
	assert.Error(t, err)
}
