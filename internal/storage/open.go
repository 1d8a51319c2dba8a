package storage

import (
	"context"
	"fmt"
)

// Поддерживаемые бэкенды хранилища
const (
	BackendNone   = "none"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Options выбирает и настраивает бэкенд
type Options struct {
	Backend string
	Path    string // Каталог BadgerDB
	Redis   RedisConfig
}

// Open создаёт хранилище по настройкам. Для BackendNone возвращает nil, nil.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendBadger:
		s, err := NewBadgerStore(opts.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendRedis:
		s, err := NewRedisStore(ctx, &opts.Redis)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("неизвестный бэкенд хранилища %q", opts.Backend)
}
