// Package session связывает мир, мост, хранилище и шину событий в одну
// сессию. Все обращения к миру из других горутин проходят через мост.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/voxelmem/internal/bridge"
	"github.com/annel0/voxelmem/internal/eventbus"
	"github.com/annel0/voxelmem/internal/logging"
	"github.com/annel0/voxelmem/internal/memory"
	"github.com/annel0/voxelmem/internal/metrics"
	"github.com/annel0/voxelmem/internal/observability"
	"github.com/annel0/voxelmem/internal/storage"
	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world"
	"github.com/annel0/voxelmem/internal/world/block"
)

// ErrStopped возвращается после остановки сессии
var ErrStopped = bridge.ErrStopped

// ErrAlreadyStarted возвращается при повторном запуске
var ErrAlreadyStarted = errors.New("сессия уже запущена")

// Options задаёт состав сессии
type Options struct {
	World            world.Config
	Layout           memory.Layout
	TPS              int
	FeedbackBuffer   int                 // Размер буфера публикации событий
	Storage          storage.Store       // Может быть nil
	AutosaveInterval time.Duration       // 0: только сохранение при остановке
	Bus              eventbus.EventBus   // Может быть nil
	Metrics          *metrics.Collectors // Может быть nil
}

// Stats: сводка состояния сессии
type Stats struct {
	ID           string `json:"id"`
	Chunks       int    `json:"chunks"`
	Tick         uint64 `json:"tick"`
	TotalToggles uint64 `json:"total_toggles"`
	QueueDepth   int    `json:"queue_depth"`
}

// Session владеет миром и его горутиной симуляции
type Session struct {
	id      string
	world   *world.World
	memory  *memory.Store
	bridge  *bridge.Bridge
	store   storage.Store
	bus     eventbus.EventBus
	metrics *metrics.Collectors
	logger  *logging.Logger
	tracer  trace.Tracer

	autosave time.Duration
	feedback chan world.Feedback

	mu       sync.Mutex
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	workers  sync.WaitGroup
	stopOnce sync.Once
	stopErr  error
}

// New создаёт сессию. Мир и очередь готовы, цикл симуляции не запущен.
func New(opts Options) (*Session, error) {
	geom := memory.NewGeometry(opts.World.MinY, opts.World.MaxY, world.ChunkWidth, opts.Layout)
	if err := geom.Validate(); err != nil {
		return nil, err
	}

	buffer := opts.FeedbackBuffer
	if buffer <= 0 {
		buffer = 1024
	}

	s := &Session{
		id:       uuid.NewString(),
		world:    world.NewWorld(opts.World),
		store:    opts.Storage,
		bus:      opts.Bus,
		metrics:  opts.Metrics,
		logger:   logging.GetComponentLogger(logging.ComponentSession),
		tracer:   observability.Tracer(),
		autosave: opts.AutosaveInterval,
		feedback: make(chan world.Feedback, buffer),
	}
	s.memory = memory.NewStore(s.world, opts.Layout)
	s.world.SetFeedbackSink(s)
	s.bridge = bridge.New(bridge.Config{
		TPS:     opts.TPS,
		OnTick:  s.world.Tick,
		Metrics: opts.Metrics,
	})
	return s, nil
}

// ID возвращает идентификатор сессии
func (s *Session) ID() string {
	return s.id
}

// Layout возвращает раскладку памяти
func (s *Session) Layout() memory.Layout {
	return s.memory.Layout()
}

// Start восстанавливает регионы из хранилища и запускает цикл симуляции,
// публикацию событий и автосохранение.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	if s.stopped {
		return ErrStopped
	}

	// Мост ещё не запущен, поэтому мир можно заполнять из текущей горутины
	if s.store != nil {
		chunks, err := storage.LoadAll(ctx, s.store)
		if err != nil {
			s.metrics.SnapshotError()
			return fmt.Errorf("ошибка восстановления регионов: %w", err)
		}
		restored := 0
		for _, c := range chunks {
			if c.MinY != s.world.MinY() || c.MaxY != s.world.MaxY() {
				s.logger.Warn("Регион (%d, %d) пропущен: высота снимка %d..%d, мира %d..%d",
					c.Coords.X, c.Coords.Y, c.MinY, c.MaxY, s.world.MinY(), s.world.MaxY())
				continue
			}
			s.world.PutChunk(c)
			restored++
		}
		if restored > 0 {
			s.logger.Info("Восстановлено регионов: %d", restored)
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.started = true

	go s.bridge.Run(runCtx)

	s.workers.Add(1)
	go s.publishLoop()

	if s.store != nil && s.autosave > 0 {
		s.workers.Add(1)
		go s.autosaveLoop(runCtx)
	}

	s.logger.Info("Сессия %s запущена (высота %d..%d)", s.id, s.world.MinY(), s.world.MaxY())
	return nil
}

// Stop останавливает цикл симуляции (выполнив поставленные задачи),
// сохраняет изменённые регионы и закрывает хранилище и шину.
func (s *Session) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		cancel := s.cancel
		s.mu.Unlock()

		s.bridge.Stop()
		if cancel != nil {
			cancel()
		}

		// Мост остановлен: мир больше никто не трогает
		s.stopErr = s.saveChunks(ctx, s.world.DirtyChunks())

		close(s.feedback)
		s.workers.Wait()

		if s.bus != nil {
			if err := s.bus.Close(); err != nil && s.stopErr == nil {
				s.stopErr = err
			}
		}
		if s.store != nil {
			if err := s.store.Close(); err != nil && s.stopErr == nil {
				s.stopErr = err
			}
		}
		s.logger.Info("Сессия %s остановлена", s.id)
	})
	return s.stopErr
}

// Stopped сообщает, остановлена ли сессия
func (s *Session) Stopped() bool {
	return s.bridge.Stopped()
}

// Emit принимает побочные эффекты мира в горутине симуляции.
// При переполнении буфера событие отбрасывается.
func (s *Session) Emit(fb world.Feedback) {
	select {
	case s.feedback <- fb:
	default:
		s.metrics.FeedbackDropped()
	}
}

// publishLoop публикует события вне горутины симуляции
func (s *Session) publishLoop() {
	defer s.workers.Done()
	for fb := range s.feedback {
		s.metrics.Feedback(fb.Kind.String())
		if s.bus == nil {
			continue
		}
		ev, err := eventbus.FeedbackEnvelope(s.id, fb)
		if err != nil {
			s.logger.Warn("Событие %s не упаковано: %v", fb.Kind, err)
			continue
		}
		if err := s.bus.Publish(context.Background(), ev); err != nil {
			s.logger.Warn("Событие %s не опубликовано: %v", fb.Kind, err)
		}
	}
}

// autosaveLoop периодически сохраняет изменённые регионы
func (s *Session) autosaveLoop(ctx context.Context) {
	defer s.workers.Done()
	ticker := time.NewTicker(s.autosave)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Save(ctx); err != nil && !errors.Is(err, ErrStopped) {
				s.logger.Error("Ошибка автосохранения: %v", err)
			}
		}
	}
}

// Save снимает копии изменённых регионов в горутине симуляции
// и записывает их в хранилище из текущей горутины.
func (s *Session) Save(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	chunks, err := bridge.ReadThrough(s.bridge, s.world.DirtyChunks)
	if err != nil {
		return err
	}
	return s.saveChunks(ctx, chunks)
}

func (s *Session) saveChunks(ctx context.Context, chunks []*world.Chunk) error {
	if s.store == nil || len(chunks) == 0 {
		return nil
	}
	var errs []error
	saved := 0
	for _, c := range chunks {
		if err := s.store.SaveChunk(ctx, c); err != nil {
			s.metrics.SnapshotError()
			errs = append(errs, fmt.Errorf("регион %v: %w", c.Coords, err))
			continue
		}
		saved++
	}
	s.metrics.SnapshotSaved(saved)
	s.logger.Debug("Сохранено регионов: %d из %d", saved, len(chunks))
	return errors.Join(errs...)
}

// Capacity возвращает ёмкость региона в байтах
func (s *Session) Capacity(ctx context.Context, region vec.Vec2) (int, error) {
	return bridge.ReadThrough(s.bridge, func() int {
		return s.memory.Capacity(region)
	})
}

// ReadRegion читает length байтов региона начиная с offset и ждёт результата
func (s *Session) ReadRegion(ctx context.Context, region vec.Vec2, offset, length int) ([]byte, error) {
	_, span := s.tracer.Start(ctx, "session.ReadRegion", trace.WithAttributes(
		attribute.Int("region.x", region.X),
		attribute.Int("region.z", region.Y),
		attribute.Int("offset", offset),
		attribute.Int("length", length),
	))
	defer span.End()

	data, err := bridge.ReadThrough(s.bridge, func() []byte {
		return s.memory.ReadRegion(region, offset, length)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	s.metrics.BytesRead(len(data))
	return data, nil
}

// WriteRegion ставит запись в очередь и сразу возвращается.
// Возврат без ошибки означает только постановку в очередь.
func (s *Session) WriteRegion(ctx context.Context, region vec.Vec2, offset int, payload []byte) error {
	if s.bridge.Stopped() {
		return ErrStopped
	}
	_, span := s.tracer.Start(ctx, "session.WriteRegion", trace.WithAttributes(
		attribute.Int("region.x", region.X),
		attribute.Int("region.z", region.Y),
		attribute.Int("offset", offset),
		attribute.Int("length", len(payload)),
	))
	defer span.End()

	data := append([]byte(nil), payload...)
	if err := s.bridge.Enqueue(func() {
		s.recordWrite(s.memory.WriteRegion(region, offset, data))
	}); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// WriteRegionAndWait записывает payload и ждёт применения, но не дольше жизни ctx
func (s *Session) WriteRegionAndWait(ctx context.Context, region vec.Vec2, offset int, payload []byte) (memory.WriteStats, error) {
	ctx, span := s.tracer.Start(ctx, "session.WriteRegionAndWait", trace.WithAttributes(
		attribute.Int("region.x", region.X),
		attribute.Int("region.z", region.Y),
		attribute.Int("offset", offset),
		attribute.Int("length", len(payload)),
	))
	defer span.End()

	data := append([]byte(nil), payload...)
	var stats memory.WriteStats
	var mu sync.Mutex
	err := s.bridge.EnqueueAndWait(ctx, func() {
		result := s.memory.WriteRegion(region, offset, data)
		s.recordWrite(result)
		mu.Lock()
		stats = result
		mu.Unlock()
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return memory.WriteStats{}, err
	}
	mu.Lock()
	defer mu.Unlock()
	span.SetAttributes(attribute.Int("toggles", stats.Toggles))
	return stats, nil
}

func (s *Session) recordWrite(stats memory.WriteStats) {
	s.metrics.Write(stats.Slots, stats.Toggles, stats.Skipped)
}

// GetVoxel возвращает состояние ячейки
func (s *Session) GetVoxel(ctx context.Context, pos vec.Vec3) (block.State, error) {
	return bridge.ReadThrough(s.bridge, func() block.State {
		return s.world.GetBlock(pos)
	})
}

// SetVoxel ставит замену ячейки в очередь и сразу возвращается
func (s *Session) SetVoxel(ctx context.Context, pos vec.Vec3, state block.State) error {
	if s.bridge.Stopped() {
		return ErrStopped
	}
	return s.bridge.Enqueue(func() {
		s.world.SetBlock(pos, state)
	})
}

// GenerateMemory размещает структуру памяти в регионе и возвращает число битов
func (s *Session) GenerateMemory(ctx context.Context, region vec.Vec2) (int, error) {
	return bridge.ReadThrough(s.bridge, func() int {
		return s.world.GenerateMemory(region)
	})
}

// Stats возвращает сводку состояния сессии
func (s *Session) Stats(ctx context.Context) (Stats, error) {
	stats, err := bridge.ReadThrough(s.bridge, func() Stats {
		return Stats{
			ID:           s.id,
			Chunks:       s.world.ChunkCount(),
			Tick:         s.world.CurrentTick(),
			TotalToggles: s.world.TotalToggles(),
		}
	})
	if err != nil {
		return Stats{}, err
	}
	stats.QueueDepth = s.bridge.QueueDepth()
	return stats, nil
}
