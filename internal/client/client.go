// Package client: HTTP-клиент шлюза памяти и линейный диск поверх регионов.
package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/annel0/voxelmem/internal/vec"
)

var (
	// ErrRejected: шлюз отклонил запрос как некорректный (400)
	ErrRejected = errors.New("запрос отклонён шлюзом")
	// ErrUnauthorized: нет токена или недостаточно прав (401, 403)
	ErrUnauthorized = errors.New("нет доступа")
	// ErrUnavailable: сессия остановлена, перегружена или не успела (429, 503, 504)
	ErrUnavailable = errors.New("шлюз недоступен")
)

// StatusError: ответ шлюза с кодом, отличным от 200
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Is сопоставляет код ответа с ошибками пакета
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrRejected:
		return e.StatusCode == http.StatusBadRequest
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrUnavailable:
		return e.StatusCode == http.StatusTooManyRequests ||
			e.StatusCode == http.StatusServiceUnavailable ||
			e.StatusCode == http.StatusGatewayTimeout
	}
	return false
}

// Client обращается к маршрутам шлюза
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	wait    bool
}

// Option настраивает Client
type Option func(*Client)

// WithHTTPClient задаёт http.Client (по умолчанию таймаут 30 с)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken добавляет bearer-токен ко всем запросам
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithWait заставляет WriteChunk ждать применения записи (wait=1)
func WithWait(wait bool) Option {
	return func(c *Client) { c.wait = wait }
}

// New создаёт клиента для шлюза по адресу baseURL, например http://localhost:8394
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetBlock возвращает дескриптор ячейки
func (c *Client) GetBlock(ctx context.Context, pos vec.Vec3) (string, error) {
	q := url.Values{}
	setPos(q, pos)
	return c.do(ctx, http.MethodGet, "/get_block", q, "")
}

// SetBlock заменяет ячейку и возвращает принятый дескриптор
func (c *Client) SetBlock(ctx context.Context, pos vec.Vec3, descriptor string) (string, error) {
	q := url.Values{}
	setPos(q, pos)
	return c.do(ctx, http.MethodPut, "/set_block", q, descriptor+"\n")
}

// ReadChunk читает length байтов региона со смещения offset.
// Отрицательный length означает «до конца региона».
func (c *Client) ReadChunk(ctx context.Context, region vec.Vec2, offset, length int) ([]byte, error) {
	q := url.Values{}
	setRegion(q, region)
	q.Set("offset", strconv.Itoa(offset))
	if length >= 0 {
		q.Set("length", strconv.Itoa(length))
	}
	body, err := c.do(ctx, http.MethodGet, "/read_chunk", q, "")
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(body))
	if err != nil {
		return nil, fmt.Errorf("ответ read_chunk не в base64: %w", err)
	}
	return data, nil
}

// WriteChunk записывает data в регион со смещения offset
func (c *Client) WriteChunk(ctx context.Context, region vec.Vec2, offset int, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	q := url.Values{}
	setRegion(q, region)
	q.Set("offset", strconv.Itoa(offset))
	if c.wait {
		q.Set("wait", "1")
	}
	_, err := c.do(ctx, http.MethodPut, "/write_chunk", q, base64.StdEncoding.EncodeToString(data)+"\n")
	return err
}

// Capacity возвращает ёмкость региона в байтах
func (c *Client) Capacity(ctx context.Context, region vec.Vec2) (int, error) {
	q := url.Values{}
	setRegion(q, region)
	body, err := c.do(ctx, http.MethodGet, "/capacity", q, "")
	if err != nil {
		return 0, err
	}
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Capacity int `json:"capacity"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return 0, fmt.Errorf("ошибка разбора ответа capacity: %w", err)
	}
	return resp.Data.Capacity, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body string) (string, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return "", err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "text/plain")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s %s: ошибка чтения ответа: %w", method, path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	return string(data), nil
}

func setPos(q url.Values, pos vec.Vec3) {
	q.Set("x", strconv.Itoa(pos.X))
	q.Set("y", strconv.Itoa(pos.Y))
	q.Set("z", strconv.Itoa(pos.Z))
}

func setRegion(q url.Values, region vec.Vec2) {
	q.Set("x", strconv.Itoa(region.X))
	q.Set("z", strconv.Itoa(region.Y))
}
