package app

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxelmem/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.World.MinY = 0
	cfg.World.MaxY = 4
	cfg.Bridge.TPS = 100
	cfg.Storage.Backend = "badger"
	cfg.Storage.Path = t.TempDir()
	cfg.Storage.AutosaveSeconds = 0
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, out *bytes.Buffer) *App {
	t.Helper()
	reg := prometheus.NewRegistry()
	opts := Options{Registry: reg, Gatherer: reg}
	if out != nil {
		opts.Console = out
	}
	a, err := New(context.Background(), cfg, opts)
	require.NoError(t, err)
	return a
}

func TestAppPersistsAcrossRestarts(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	out := &bytes.Buffer{}
	a := newTestApp(t, cfg, out)
	require.NotNil(t, a.Console())
	require.NoError(t, a.Console().Execute(ctx, "generate_memory 0 0"))
	require.NoError(t, a.Console().Execute(ctx, "encode_chunk 0 0 saved 0"))
	require.NoError(t, a.Close(ctx))

	out.Reset()
	b := newTestApp(t, cfg, out)
	defer b.Close(ctx)
	require.NoError(t, b.Console().Execute(ctx, "decode_chunk 0 0 5"))
	assert.Equal(t, "saved\n", out.String())
}

func TestAppServesHTTP(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "none"
	a := newTestApp(t, cfg, nil)
	defer a.Close(context.Background())
	assert.Nil(t, a.Console())

	w := httptest.NewRecorder()
	a.Server().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/capacity?x=0&z=0", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"capacity":24`)

	w = httptest.NewRecorder()
	a.Server().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "voxelmem_bridge_ticks_total")
}

func TestAppRunStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	cfg := testConfig(t)
	cfg.Storage.Backend = "none"
	cfg.Server.HTTPPort = port
	a := newTestApp(t, cfg, nil)
	defer a.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", l.Addr().String())
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run не завершился после отмены контекста")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Memory.Polarity = "sideways"
	_, err := New(context.Background(), cfg, Options{Registry: prometheus.NewRegistry()})
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.World.Width = 8
	_, err = New(context.Background(), cfg, Options{Registry: prometheus.NewRegistry()})
	assert.Error(t, err)
}
