package eventbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed возвращается при публикации в закрытую шину.
var ErrClosed = errors.New("шина событий закрыта")

// Priority события обратной связи. При переполнении буфера in-memory
// шина отбрасывает события ниже PriorityHigh.
const (
	PriorityLow  = 1
	PriorityHigh = 5
)

// Envelope переносит одно событие сессии. Payload хранит JSON полезной
// нагрузки, для обратной связи мира это world.Feedback.
type Envelope struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Source        string            `json:"source"`
	EventType     string            `json:"event_type"` // LeverClick, RegionRegenerated...
	Version       int               `json:"version"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Tenant        string            `json:"tenant,omitempty"` // ID сессии
	Priority      int               `json:"priority"`
	Payload       []byte            `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Filter отбирает события для подписчика. Пустой список не ограничивает.
type Filter struct {
	Types   []string
	Sources []string
	Tenants []string
}

type Subscription interface {
	Unsubscribe()
}

type Handler func(ctx context.Context, ev *Envelope)

// Stats счётчики шины
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus доставляет события сессий подписчикам. Реализации:
// NewMemoryBus для одного процесса и JetStreamBus для внешних потребителей.
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close() error
}

// memoryBus доставляет события внутри процесса. Каждый подписчик получает
// события в порядке публикации через собственную очередь.
type memoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]*memSubscriber
	nextID      int
	stats       Stats
	buffer      chan *Envelope
	closed      bool
	handlers    sync.WaitGroup
	done        chan struct{}
}

type memSubscriber struct {
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
	queue   chan *Envelope
}

// NewMemoryBus создаёт шину с буфером на capacity событий
func NewMemoryBus(capacity int) EventBus {
	if capacity <= 0 {
		capacity = 1
	}
	mb := &memoryBus{
		subscribers: make(map[int]*memSubscriber),
		buffer:      make(chan *Envelope, capacity),
		done:        make(chan struct{}),
	}
	go mb.dispatchLoop()
	return mb
}

func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if mb.closed {
		return ErrClosed
	}

	select {
	case mb.buffer <- ev:
		atomic.AddUint64(&mb.stats.Published, 1)
		return nil
	default:
	}

	if ev.Priority < PriorityHigh {
		atomic.AddUint64(&mb.stats.Dropped, 1)
		return nil
	}
	select {
	case mb.buffer <- ev:
		atomic.AddUint64(&mb.stats.Published, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return nil, ErrClosed
	}

	id := mb.nextID
	mb.nextID++
	cctx, cancel := context.WithCancel(ctx)
	sub := &memSubscriber{
		filter:  f,
		handler: h,
		ctx:     cctx,
		cancel:  cancel,
		queue:   make(chan *Envelope, cap(mb.buffer)),
	}
	mb.subscribers[id] = sub

	mb.handlers.Add(1)
	go mb.consume(sub)
	return &memSub{bus: mb, id: id}, nil
}

// consume вызывает обработчик, пока очередь не закрыта или подписка не отменена
func (mb *memoryBus) consume(sub *memSubscriber) {
	defer mb.handlers.Done()
	for {
		select {
		case ev, ok := <-sub.queue:
			if !ok {
				return
			}
			if sub.ctx.Err() != nil {
				return
			}
			sub.handler(sub.ctx, ev)
			atomic.AddUint64(&mb.stats.Consumed, 1)
		case <-sub.ctx.Done():
			return
		}
	}
}

func (mb *memoryBus) Metrics() Stats {
	return Stats{
		Published: atomic.LoadUint64(&mb.stats.Published),
		Consumed:  atomic.LoadUint64(&mb.stats.Consumed),
		Dropped:   atomic.LoadUint64(&mb.stats.Dropped),
		InFlight:  len(mb.buffer),
	}
}

// Close прекращает приём событий, доставляет оставшиеся и ждёт обработчиков
func (mb *memoryBus) Close() error {
	mb.mu.Lock()
	if mb.closed {
		mb.mu.Unlock()
		return nil
	}
	mb.closed = true
	close(mb.buffer)
	mb.mu.Unlock()

	<-mb.done

	mb.mu.Lock()
	for id, sub := range mb.subscribers {
		close(sub.queue)
		delete(mb.subscribers, id)
	}
	mb.mu.Unlock()

	mb.handlers.Wait()
	return nil
}

func (mb *memoryBus) dispatchLoop() {
	defer close(mb.done)
	for ev := range mb.buffer {
		mb.mu.RLock()
		targets := make([]*memSubscriber, 0, len(mb.subscribers))
		for _, sub := range mb.subscribers {
			if matchFilter(ev, sub.filter) {
				targets = append(targets, sub)
			}
		}
		mb.mu.RUnlock()

		for _, sub := range targets {
			select {
			case sub.queue <- ev:
			case <-sub.ctx.Done():
			}
		}
	}
}

func matchFilter(ev *Envelope, f Filter) bool {
	match := func(val string, arr []string) bool {
		if len(arr) == 0 {
			return true
		}
		for _, v := range arr {
			if v == val {
				return true
			}
		}
		return false
	}
	return match(ev.EventType, f.Types) && match(ev.Source, f.Sources) && match(ev.Tenant, f.Tenants)
}

type memSub struct {
	bus *memoryBus
	id  int
}

// Unsubscribe отменяет подписку; очередь подписчика закрывает Close шины
func (s *memSub) Unsubscribe() {
	s.bus.mu.Lock()
	if sub, ok := s.bus.subscribers[s.id]; ok {
		sub.cancel()
		delete(s.bus.subscribers, s.id)
	}
	s.bus.mu.Unlock()
}
