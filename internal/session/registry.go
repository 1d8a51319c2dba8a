package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound возвращается для неизвестного идентификатора сессии
var ErrNotFound = errors.New("сессия не найдена")

// Registry хранит запущенные сессии по идентификатору.
// Реестр принадлежит серверу; глобального экземпляра нет.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add регистрирует сессию
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
}

// Get возвращает сессию по идентификатору
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// IDs возвращает отсортированный список идентификаторов
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Remove останавливает сессию и удаляет её из реестра
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.Stop(ctx)
}

// StopAll останавливает все сессии и очищает реестр
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
