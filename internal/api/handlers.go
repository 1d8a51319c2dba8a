package api

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/annel0/voxelmem/internal/bridge"
	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world/block"
)

// ResponseComplete: тело ответа на успешную запись
const ResponseComplete = "Complete"

var (
	// ErrOutOfRange возвращается, если диапазон выходит за ёмкость региона
	ErrOutOfRange = errors.New("диапазон выходит за пределы региона")
	// ErrBadPayload возвращается для тела, которое не декодируется из base64
	ErrBadPayload = errors.New("тело запроса не в base64")
)

// maxBodyLine ограничивает длину первой строки тела запроса
const maxBodyLine = 1 << 20

type blockQuery struct {
	X *int `form:"x" binding:"required"`
	Y *int `form:"y" binding:"required"`
	Z *int `form:"z" binding:"required"`
}

func (q blockQuery) pos() vec.Vec3 {
	return vec.Vec3{X: *q.X, Y: *q.Y, Z: *q.Z}
}

type regionQuery struct {
	X      *int `form:"x" binding:"required"`
	Z      *int `form:"z" binding:"required"`
	Offset *int `form:"offset"`
	Length *int `form:"length"`
	Wait   bool `form:"wait"`
}

func (q regionQuery) region() vec.Vec2 {
	return vec.Vec2{X: *q.X, Y: *q.Z}
}

func (q regionQuery) offset() int {
	if q.Offset == nil {
		return 0
	}
	return *q.Offset
}

// readRange проверяет диапазон чтения. Если length не задан,
// читается всё от offset до конца региона.
func readRange(capacity int, offset int, length *int) (int, error) {
	if offset < 0 || offset > capacity {
		return 0, fmt.Errorf("%w: offset=%d, ёмкость %d", ErrOutOfRange, offset, capacity)
	}
	n := capacity - offset
	if length != nil {
		n = *length
	}
	if n < 0 || n > capacity-offset {
		return 0, fmt.Errorf("%w: offset=%d length=%d, ёмкость %d", ErrOutOfRange, offset, n, capacity)
	}
	return n, nil
}

// writeRange проверяет, что payload целиком помещается в регион
func writeRange(capacity, offset, length int) error {
	if offset < 0 || length < 0 || offset > capacity || offset > capacity-length {
		return fmt.Errorf("%w: offset=%d length=%d, ёмкость %d", ErrOutOfRange, offset, length, capacity)
	}
	return nil
}

// firstLine возвращает первую строку тела без перевода строки
func firstLine(body io.Reader) (string, error) {
	r := bufio.NewReader(io.LimitReader(body, maxBodyLine))
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// backendError переводит ошибку сессии в HTTP-ответ
func (rs *RestServer) backendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, bridge.ErrStopped):
		c.String(http.StatusServiceUnavailable, "Сессия остановлена")
	case errors.Is(err, context.DeadlineExceeded):
		c.String(http.StatusGatewayTimeout, "Запись не применена за отведённое время")
	default:
		rs.logger.Error("Ошибка обработки %s: %v", c.Request.URL.Path, err)
		c.String(http.StatusInternalServerError, "Внутренняя ошибка сервера")
	}
}

// handleGetBlock возвращает дескриптор ячейки
func (rs *RestServer) handleGetBlock(c *gin.Context) {
	var q blockQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.String(http.StatusBadRequest, "Нужны целые x, y, z")
		return
	}

	state, err := rs.backend.GetVoxel(c.Request.Context(), q.pos())
	if err != nil {
		rs.backendError(c, err)
		return
	}
	c.String(http.StatusOK, block.Serialize(state))
}

// handleSetBlock ставит замену ячейки в очередь и возвращает принятый дескриптор
func (rs *RestServer) handleSetBlock(c *gin.Context) {
	var q blockQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.String(http.StatusBadRequest, "Нужны целые x, y, z")
		return
	}

	line, err := firstLine(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "Не удалось прочитать тело запроса")
		return
	}
	state, err := block.Parse(line)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	if err := rs.backend.SetVoxel(c.Request.Context(), q.pos(), state); err != nil {
		rs.backendError(c, err)
		return
	}
	c.String(http.StatusOK, block.Serialize(state))
}

// handleReadChunk читает байты региона и отдаёт их в base64
func (rs *RestServer) handleReadChunk(c *gin.Context) {
	var q regionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.String(http.StatusBadRequest, "Нужны целые x, z")
		return
	}
	ctx := c.Request.Context()
	region := q.region()

	capacity, err := rs.backend.Capacity(ctx, region)
	if err != nil {
		rs.backendError(c, err)
		return
	}
	length, err := readRange(capacity, q.offset(), q.Length)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	data, err := rs.backend.ReadRegion(ctx, region, q.offset(), length)
	if err != nil {
		rs.backendError(c, err)
		return
	}
	c.String(http.StatusOK, base64.StdEncoding.EncodeToString(data))
}

// handleWriteChunk декодирует base64 из первой строки тела и записывает его в регион.
// Без wait=1 запись только ставится в очередь.
func (rs *RestServer) handleWriteChunk(c *gin.Context) {
	var q regionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.String(http.StatusBadRequest, "Нужны целые x, z")
		return
	}

	line, err := firstLine(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "Не удалось прочитать тело запроса")
		return
	}
	if line == "" {
		c.String(http.StatusOK, ResponseComplete)
		return
	}
	payload, err := base64.StdEncoding.DecodeString(line)
	if err != nil {
		c.String(http.StatusBadRequest, ErrBadPayload.Error())
		return
	}

	ctx := c.Request.Context()
	region := q.region()
	capacity, err := rs.backend.Capacity(ctx, region)
	if err != nil {
		rs.backendError(c, err)
		return
	}
	if err := writeRange(capacity, q.offset(), len(payload)); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	if q.Wait {
		waitCtx, cancel := context.WithTimeout(ctx, rs.waitTimeout)
		defer cancel()
		stats, err := rs.backend.WriteRegionAndWait(waitCtx, region, q.offset(), payload)
		if err != nil {
			rs.backendError(c, err)
			return
		}
		rs.logger.Debug("Запись в %v: слотов %d, переключений %d", region, stats.Slots, stats.Toggles)
		c.String(http.StatusOK, ResponseComplete)
		return
	}

	if err := rs.backend.WriteRegion(ctx, region, q.offset(), payload); err != nil {
		rs.backendError(c, err)
		return
	}
	c.String(http.StatusOK, ResponseComplete)
}

// handleCapacity возвращает ёмкость региона
func (rs *RestServer) handleCapacity(c *gin.Context) {
	var q regionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Нужны целые x, z",
		})
		return
	}

	capacity, err := rs.backend.Capacity(c.Request.Context(), q.region())
	if err != nil {
		rs.backendError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Ёмкость получена",
		Data: gin.H{
			"x":        *q.X,
			"z":        *q.Z,
			"capacity": capacity,
		},
	})
}

// handleStats возвращает статистику сессии и процесса
func (rs *RestServer) handleStats(c *gin.Context) {
	stats, err := rs.backend.Stats(c.Request.Context())
	if err != nil {
		rs.backendError(c, err)
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data: gin.H{
			"session": stats,
			"server":  rs.metrics.Snapshot(),
		},
	})
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": rs.metrics.GetUptime(),
	})
}
