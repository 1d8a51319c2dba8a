package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxelmem/internal/auth"
	"github.com/annel0/voxelmem/internal/memory"
	"github.com/annel0/voxelmem/internal/session"
	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world"
)

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New(session.Options{
		World:  world.Config{MinY: 0, MaxY: 4},
		Layout: memory.ReferenceLayout(),
		TPS:    100,
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { s.Stop(context.Background()) })

	_, err = s.GenerateMemory(context.Background(), vec.Vec2{})
	require.NoError(t, err)
	return s
}

func newTestServer(t *testing.T, backend Backend, mutate func(*Config)) *RestServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	cfg := Config{Backend: backend, Registerer: reg, Gatherer: reg}
	if mutate != nil {
		mutate(&cfg)
	}
	rs, err := NewRestServer(cfg)
	require.NoError(t, err)
	return rs
}

func do(rs *RestServer, method, target, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	rs.Handler().ServeHTTP(w, req)
	return w
}

func TestGetAndSetBlock(t *testing.T) {
	rs := newTestServer(t, newTestSession(t), nil)

	w := do(rs, http.MethodGet, "/get_block?x=0&y=1&z=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lever[face=wall,facing=south,powered=true]", w.Body.String())

	w = do(rs, http.MethodPut, "/set_block?x=40&y=2&z=0", "stone\nignored")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stone", w.Body.String())

	w = do(rs, http.MethodGet, "/get_block?x=40&y=2&z=0", "")
	assert.Equal(t, "stone", w.Body.String())
}

func TestBlockRoutesRejectBadInput(t *testing.T) {
	rs := newTestServer(t, newTestSession(t), nil)

	assert.Equal(t, http.StatusBadRequest, do(rs, http.MethodGet, "/get_block?x=0&y=1", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(rs, http.MethodGet, "/get_block?x=a&y=1&z=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(rs, http.MethodPut, "/set_block?x=0&y=1&z=0", "diamond_block").Code)
	assert.Equal(t, http.StatusBadRequest, do(rs, http.MethodPut, "/set_block?x=0&y=1&z=0", "lever[powered=").Code)
}

func TestWrongMethod(t *testing.T) {
	rs := newTestServer(t, newTestSession(t), nil)

	assert.Equal(t, http.StatusMethodNotAllowed, do(rs, http.MethodPost, "/read_chunk?x=0&z=0", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(rs, http.MethodGet, "/write_chunk?x=0&z=0", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(rs, http.MethodPut, "/get_block?x=0&y=0&z=0", "").Code)
}

func TestWriteThenReadChunk(t *testing.T) {
	rs := newTestServer(t, newTestSession(t), nil)

	body := base64.StdEncoding.EncodeToString([]byte("Hi!"))
	w := do(rs, http.MethodPut, "/write_chunk?x=0&z=0&offset=4", body+"\n")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ResponseComplete, w.Body.String())

	w = do(rs, http.MethodGet, "/read_chunk?x=0&z=0&offset=4&length=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	got, err := base64.StdEncoding.DecodeString(w.Body.String())
	require.NoError(t, err)
	assert.Equal(t, []byte("Hi!"), got)

	// Без length читается весь остаток региона
	w = do(rs, http.MethodGet, "/read_chunk?x=0&z=0&offset=20", "")
	require.Equal(t, http.StatusOK, w.Code)
	got, err = base64.StdEncoding.DecodeString(w.Body.String())
	require.NoError(t, err)
	assert.Len(t, got, 4)

	w = do(rs, http.MethodGet, "/read_chunk?x=0&z=0", "")
	got, err = base64.StdEncoding.DecodeString(w.Body.String())
	require.NoError(t, err)
	require.Len(t, got, 24)
	assert.Equal(t, []byte("Hi!"), got[4:7])
}

func TestWriteChunkWait(t *testing.T) {
	rs := newTestServer(t, newTestSession(t), nil)

	body := base64.StdEncoding.EncodeToString([]byte{0xFF, 0x00})
	w := do(rs, http.MethodPut, "/write_chunk?x=0&z=0&offset=5&wait=1", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ResponseComplete, w.Body.String())

	w = do(rs, http.MethodGet, "/read_chunk?x=0&z=0&offset=5&length=2", "")
	assert.Equal(t, body, w.Body.String())
}

func TestEmptyWriteIsNoop(t *testing.T) {
	rs := newTestServer(t, newTestSession(t), nil)

	w := do(rs, http.MethodPut, "/write_chunk?x=0&z=0", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ResponseComplete, w.Body.String())

	w = do(rs, http.MethodGet, "/read_chunk?x=0&z=0&length=4", "")
	assert.Equal(t, base64.StdEncoding.EncodeToString(make([]byte, 4)), w.Body.String())
}

func TestChunkRangeIsRejected(t *testing.T) {
	rs := newTestServer(t, newTestSession(t), nil)

	cases := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"длина больше ёмкости", http.MethodGet, "/read_chunk?x=0&z=0&length=25", ""},
		{"выход за конец", http.MethodGet, "/read_chunk?x=0&z=0&offset=20&length=5", ""},
		{"отрицательная длина", http.MethodGet, "/read_chunk?x=0&z=0&length=-1", ""},
		{"отрицательное смещение", http.MethodGet, "/read_chunk?x=0&z=0&offset=-1", ""},
		{"смещение за концом", http.MethodGet, "/read_chunk?x=0&z=0&offset=25", ""},
		{"нет z", http.MethodGet, "/read_chunk?x=0", ""},
		{"запись за конец", http.MethodPut, "/write_chunk?x=0&z=0&offset=23", base64.StdEncoding.EncodeToString([]byte("ab"))},
		{"не base64", http.MethodPut, "/write_chunk?x=0&z=0", "***"},
		{"огромная длина", http.MethodGet, "/read_chunk?x=0&z=0&offset=1&length=9223372036854775807", ""},
		{"огромное смещение при чтении", http.MethodGet, "/read_chunk?x=0&z=0&offset=9223372036854775807&length=1", ""},
		{"огромное смещение при записи", http.MethodPut, "/write_chunk?x=0&z=0&offset=9223372036854775807", "QQ=="},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(rs, tc.method, tc.target, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	// Отклонённая запись не меняет регион
	w := do(rs, http.MethodGet, "/read_chunk?x=0&z=0&offset=22", "")
	assert.Equal(t, base64.StdEncoding.EncodeToString(make([]byte, 2)), w.Body.String())
}

func TestCapacityAndStats(t *testing.T) {
	rs := newTestServer(t, newTestSession(t), nil)

	w := do(rs, http.MethodGet, "/capacity?x=0&z=0", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Capacity int `json:"capacity"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 24, resp.Data.Capacity)

	w = do(rs, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Data struct {
			Session session.Stats `json:"session"`
			Server  ProcessStats  `json:"server"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.NotEmpty(t, stats.Data.Session.ID)
	assert.Equal(t, 1, stats.Data.Session.Chunks)
	assert.Positive(t, stats.Data.Server.Goroutines)

	w = do(rs, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(rs, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "voxelmem_api_http_request_duration_seconds")
}

func TestStoppedSessionReturns503(t *testing.T) {
	s := newTestSession(t)
	rs := newTestServer(t, s, nil)
	require.NoError(t, s.Stop(context.Background()))

	assert.Equal(t, http.StatusServiceUnavailable, do(rs, http.MethodGet, "/read_chunk?x=0&z=0", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(rs, http.MethodPut, "/set_block?x=0&y=0&z=0", "stone").Code)
}

func TestAuthorization(t *testing.T) {
	signer, err := auth.NewSigner(auth.GenerateSecureSecret())
	require.NoError(t, err)
	rs := newTestServer(t, newTestSession(t), func(c *Config) { c.Signer = signer })

	reader, err := signer.GenerateJWT("reader", false, time.Minute)
	require.NoError(t, err)
	writer, err := signer.GenerateJWT("writer", true, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(rs, http.MethodGet, "/read_chunk?x=0&z=0", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(rs, http.MethodGet, "/read_chunk?x=0&z=0", "", "Authorization", "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, do(rs, http.MethodGet, "/read_chunk?x=0&z=0", "", "Authorization", "Bearer abc").Code)
	assert.Equal(t, http.StatusOK, do(rs, http.MethodGet, "/read_chunk?x=0&z=0", "", "Authorization", "Bearer "+reader).Code)

	body := base64.StdEncoding.EncodeToString([]byte("x"))
	assert.Equal(t, http.StatusForbidden, do(rs, http.MethodPut, "/write_chunk?x=0&z=0", body, "Authorization", "Bearer "+reader).Code)
	assert.Equal(t, http.StatusOK, do(rs, http.MethodPut, "/write_chunk?x=0&z=0", body, "Authorization", "Bearer "+writer).Code)

	// Проверка состояния доступна без токена
	assert.Equal(t, http.StatusOK, do(rs, http.MethodGet, "/health", "").Code)
}

func TestRateLimit(t *testing.T) {
	rs := newTestServer(t, newTestSession(t), func(c *Config) {
		c.RPS = 0.001
		c.Burst = 1
	})

	assert.Equal(t, http.StatusOK, do(rs, http.MethodGet, "/get_block?x=0&y=0&z=0", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(rs, http.MethodGet, "/get_block?x=0&y=0&z=0", "").Code)
}

func TestNewRestServerRequiresBackend(t *testing.T) {
	_, err := NewRestServer(Config{})
	assert.Error(t, err)
}

func TestReadRange(t *testing.T) {
	n, err := readRange(24, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	n, err = readRange(24, 24, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	length := 3
	_, err = readRange(24, 22, &length)
	assert.ErrorIs(t, err, ErrOutOfRange)

	length = math.MaxInt
	_, err = readRange(24, 1, &length)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestWriteRange(t *testing.T) {
	assert.NoError(t, writeRange(24, 22, 2))
	assert.NoError(t, writeRange(24, 24, 0))
	assert.ErrorIs(t, writeRange(24, 23, 2), ErrOutOfRange)
	assert.ErrorIs(t, writeRange(24, math.MaxInt, 1), ErrOutOfRange)
	assert.ErrorIs(t, writeRange(24, 1, math.MaxInt), ErrOutOfRange)
	assert.ErrorIs(t, writeRange(24, -1, 1), ErrOutOfRange)
}
