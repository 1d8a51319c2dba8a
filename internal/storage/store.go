// Package storage сохраняет снимки регионов (чанков) в BadgerDB или Redis.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world"
)

// ErrNotFound возвращается, если снимок региона отсутствует
var ErrNotFound = errors.New("снимок региона не найден")

// ErrClosed возвращается при обращении к закрытому хранилищу
var ErrClosed = errors.New("хранилище закрыто")

// Store: хранилище снимков регионов
type Store interface {
	// SaveChunk сохраняет снимок чанка, заменяя предыдущий
	SaveChunk(ctx context.Context, c *world.Chunk) error
	// LoadChunk загружает снимок чанка или возвращает ErrNotFound
	LoadChunk(ctx context.Context, coords vec.Vec2) (*world.Chunk, error)
	// ListChunks возвращает координаты всех сохранённых чанков
	ListChunks(ctx context.Context) ([]vec.Vec2, error)
	// Close освобождает ресурсы
	Close() error
}

const chunkKeyPrefix = "region:"

// chunkKey возвращает ключ снимка
func chunkKey(coords vec.Vec2) string {
	return fmt.Sprintf("%s%d:%d", chunkKeyPrefix, coords.X, coords.Y)
}

// parseChunkKey разбирает ключ, созданный chunkKey
func parseChunkKey(key string) (vec.Vec2, error) {
	var coords vec.Vec2
	if _, err := fmt.Sscanf(key, chunkKeyPrefix+"%d:%d", &coords.X, &coords.Y); err != nil {
		return vec.Vec2{}, fmt.Errorf("некорректный ключ %q: %w", key, err)
	}
	return coords, nil
}

// LoadAll загружает все сохранённые чанки
func LoadAll(ctx context.Context, s Store) ([]*world.Chunk, error) {
	coords, err := s.ListChunks(ctx)
	if err != nil {
		return nil, err
	}

	chunks := make([]*world.Chunk, 0, len(coords))
	for _, c := range coords {
		chunk, err := s.LoadChunk(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("ошибка загрузки региона %v: %w", c, err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}
