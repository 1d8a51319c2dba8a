package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world"
)

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string // Адрес Redis сервера
	Password  string // Пароль (пустой если не требуется)
	DB        int    // Номер базы данных
	KeyPrefix string // Префикс для ключей
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "voxelmem:",
	}
}

// RedisStore хранит снимки регионов в Redis. Список регионов ведётся
// в отдельном множестве, чтобы не использовать KEYS.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore подключается к Redis и проверяет соединение
func NewRedisStore(ctx context.Context, config *RedisConfig) (*RedisStore, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	return &RedisStore{client: client, keyPrefix: config.KeyPrefix}, nil
}

func (s *RedisStore) indexKey() string {
	return s.keyPrefix + "regions"
}

// SaveChunk сохраняет снимок чанка
func (s *RedisStore) SaveChunk(ctx context.Context, c *world.Chunk) error {
	data, err := EncodeChunk(c)
	if err != nil {
		return err
	}

	key := chunkKey(c.Coords)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keyPrefix+key, data, 0)
		pipe.SAdd(ctx, s.indexKey(), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в Redis: %w", err)
	}
	return nil
}

// LoadChunk загружает снимок чанка
func (s *RedisStore) LoadChunk(ctx context.Context, coords vec.Vec2) (*world.Chunk, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+chunkKey(coords)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из Redis: %w", err)
	}
	return DecodeChunk(data)
}

// ListChunks возвращает координаты всех сохранённых чанков
func (s *RedisStore) ListChunks(ctx context.Context) ([]vec.Vec2, error) {
	keys, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения индекса Redis: %w", err)
	}
	sort.Strings(keys)

	out := make([]vec.Vec2, 0, len(keys))
	for _, key := range keys {
		coords, err := parseChunkKey(key)
		if err != nil {
			return nil, err
		}
		out = append(out, coords)
	}
	return out, nil
}

// Close закрывает соединение с Redis
func (s *RedisStore) Close() error {
	return s.client.Close()
}
