package client

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxelmem/internal/api"
	"github.com/annel0/voxelmem/internal/auth"
	"github.com/annel0/voxelmem/internal/memory"
	"github.com/annel0/voxelmem/internal/session"
	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world"
)

// newTestGateway поднимает сессию с размеченными регионами 0..regions-1 и шлюз перед ней
func newTestGateway(t *testing.T, regions int, signer *auth.Signer) (*httptest.Server, *session.Session) {
	t.Helper()
	ctx := context.Background()

	s, err := session.New(session.Options{
		World:  world.Config{MinY: 0, MaxY: 4},
		Layout: memory.ReferenceLayout(),
		TPS:    100,
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(ctx))
	t.Cleanup(func() { s.Stop(ctx) })

	for x := 0; x < regions; x++ {
		_, err := s.GenerateMemory(ctx, vec.Vec2{X: x})
		require.NoError(t, err)
	}

	reg := prometheus.NewRegistry()
	rs, err := api.NewRestServer(api.Config{Backend: s, Signer: signer, Registerer: reg, Gatherer: reg})
	require.NoError(t, err)

	srv := httptest.NewServer(rs.Handler())
	t.Cleanup(srv.Close)
	return srv, s
}

func TestClientRoutes(t *testing.T) {
	srv, _ := newTestGateway(t, 1, nil)
	c := New(srv.URL)
	ctx := context.Background()

	capacity, err := c.Capacity(ctx, vec.Vec2{})
	require.NoError(t, err)
	assert.Equal(t, 24, capacity)

	require.NoError(t, c.WriteChunk(ctx, vec.Vec2{}, 2, []byte("abc")))
	data, err := c.ReadChunk(ctx, vec.Vec2{}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)

	data, err = c.ReadChunk(ctx, vec.Vec2{}, 20, -1)
	require.NoError(t, err)
	assert.Len(t, data, 4)

	desc, err := c.GetBlock(ctx, vec.Vec3{X: 0, Y: 0, Z: 0})
	require.NoError(t, err)
	assert.Equal(t, "white_wool", desc)

	desc, err = c.SetBlock(ctx, vec.Vec3{X: 100, Y: 1, Z: 0}, "stone")
	require.NoError(t, err)
	assert.Equal(t, "stone", desc)
}

func TestClientErrors(t *testing.T) {
	srv, s := newTestGateway(t, 1, nil)
	c := New(srv.URL)
	ctx := context.Background()

	_, err := c.ReadChunk(ctx, vec.Vec2{}, 0, 25)
	assert.ErrorIs(t, err, ErrRejected)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 400, statusErr.StatusCode)

	_, err = c.SetBlock(ctx, vec.Vec3{}, "diamond_block")
	assert.ErrorIs(t, err, ErrRejected)

	require.NoError(t, s.Stop(ctx))
	_, err = c.ReadChunk(ctx, vec.Vec2{}, 0, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClientToken(t *testing.T) {
	signer, err := auth.NewSigner(auth.GenerateSecureSecret())
	require.NoError(t, err)
	srv, _ := newTestGateway(t, 1, signer)
	ctx := context.Background()

	_, err = New(srv.URL).Capacity(ctx, vec.Vec2{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	token, err := signer.GenerateJWT("memctl", true, time.Minute)
	require.NoError(t, err)
	c := New(srv.URL, WithToken(token))
	_, err = c.Capacity(ctx, vec.Vec2{})
	assert.NoError(t, err)
	assert.NoError(t, c.WriteChunk(ctx, vec.Vec2{}, 0, []byte{1}))
}

func TestDiskSpansRegions(t *testing.T) {
	srv, _ := newTestGateway(t, 3, nil)
	ctx := context.Background()

	disk, err := NewDisk(ctx, New(srv.URL, WithWait(true)), 60)
	require.NoError(t, err)
	assert.Equal(t, int64(60), disk.Size())
	assert.Equal(t, 24, disk.RegionCapacity())
	assert.Equal(t, 3, disk.Regions())

	payload := bytes.Repeat([]byte{0xA5, 0x3C, 0x00}, 10)
	n, err := disk.WriteAt(payload, 20)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	got := make([]byte, len(payload))
	n, err = disk.ReadAt(got, 20)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, got)

	// Соседние байты не тронуты
	edge := make([]byte, 1)
	_, err = disk.ReadAt(edge, 19)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, edge)
	_, err = disk.ReadAt(edge, 50)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, edge)

	require.NoError(t, disk.Zero(ctx, 22, 10))
	_, err = disk.ReadAt(got, 20)
	require.NoError(t, err)
	assert.Equal(t, payload[:2], got[:2])
	assert.Equal(t, make([]byte, 10), got[2:12])
	assert.Equal(t, payload[12:], got[12:])
}

func TestDiskBounds(t *testing.T) {
	srv, _ := newTestGateway(t, 3, nil)
	ctx := context.Background()

	disk, err := NewDisk(ctx, New(srv.URL), 60)
	require.NoError(t, err)

	buf := make([]byte, 10)
	n, err := disk.ReadAt(buf, 55)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 5, n)

	_, err = disk.ReadAt(buf, 60)
	assert.ErrorIs(t, err, io.EOF)

	_, err = disk.WriteAt(buf, 55)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = disk.WriteAt(buf, -1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDiskSpansSplit(t *testing.T) {
	d := &Disk{capacity: 24, size: 100}
	spans := d.spans(20, 30)
	require.Len(t, spans, 3)
	assert.Equal(t, span{region: vec.Vec2{X: 0}, offset: 20, start: 0, end: 4}, spans[0])
	assert.Equal(t, span{region: vec.Vec2{X: 1}, offset: 0, start: 4, end: 28}, spans[1])
	assert.Equal(t, span{region: vec.Vec2{X: 2}, offset: 0, start: 28, end: 30}, spans[2])
}
