// Package bridge передаёт задачи в единственную горутину симуляции,
// которая владеет состоянием мира.
//
// Задачи выполняются строго по одной в порядке постановки (FIFO).
// ReadThrough блокирует вызывающего до выполнения задачи и возвращает её
// результат. Enqueue возвращается сразу после постановки в очередь:
// подтверждение записи не означает, что она уже применена, и чтение из
// другой горутины может увидеть состояние до записи. EnqueueAndWait
// дожидается выполнения, но не дольше, чем живёт контекст.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/voxelmem/internal/logging"
	"github.com/annel0/voxelmem/internal/metrics"
)

// ErrStopped возвращается при обращении к остановленному мосту
var ErrStopped = errors.New("мост остановлен")

// DefaultTPS: частота тиков симуляции по умолчанию
const DefaultTPS = 20

// TickFunc вызывается в горутине симуляции на каждом тике
type TickFunc func(tickID uint64)

// Config задаёт параметры моста
type Config struct {
	TPS     int                 // Тиков в секунду; 0: DefaultTPS
	OnTick  TickFunc            // Может быть nil
	Metrics *metrics.Collectors // Может быть nil
}

type task struct {
	kind string
	fn   func()
}

// Bridge: очередь задач и цикл их выполнения
type Bridge struct {
	tps     int
	onTick  TickFunc
	metrics *metrics.Collectors
	logger  *logging.Logger

	mu      sync.Mutex
	queue   []task
	stopped bool
	running bool

	wake   chan struct{}
	stopCh chan struct{}
	done   chan struct{}

	stopOnce sync.Once
	tickID   uint64
}

// New создаёт мост. Цикл запускается методом Run.
func New(cfg Config) *Bridge {
	tps := cfg.TPS
	if tps <= 0 {
		tps = DefaultTPS
	}
	return &Bridge{
		tps:     tps,
		onTick:  cfg.OnTick,
		metrics: cfg.Metrics,
		logger:  logging.GetBridgeLogger(),
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Run выполняет цикл симуляции до отмены ctx или вызова Stop.
// Перед выходом выполняет все задачи, оставшиеся в очереди.
// Если мост уже остановлен или цикл уже работает, Run сразу возвращается.
func (b *Bridge) Run(ctx context.Context) {
	b.mu.Lock()
	if b.stopped || b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()
	defer close(b.done)

	ticker := time.NewTicker(time.Second / time.Duration(b.tps))
	defer ticker.Stop()

	b.logger.Info("Цикл симуляции запущен (%d TPS)", b.tps)
	for {
		select {
		case <-ctx.Done():
			b.shutdown()
			return
		case <-b.stopCh:
			b.shutdown()
			return
		case <-b.wake:
			b.drain()
		case <-ticker.C:
			b.drain()
			b.processTick()
		}
	}
}

// Done закрывается после выхода из Run
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Stop останавливает приём задач, дожидается выполнения уже поставленных
// и выхода цикла. Если цикл ещё не вошёл в Run, очередь выполняется
// в текущей горутине, а последующий Run ничего не делает.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)

		b.mu.Lock()
		running := b.running
		if !running {
			b.stopped = true
		}
		b.mu.Unlock()

		if !running {
			b.shutdown()
			close(b.done)
		}
	})
	<-b.done
}

// Stopped сообщает, остановлен ли мост
func (b *Bridge) Stopped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopped
}

// QueueDepth возвращает количество ожидающих задач
func (b *Bridge) QueueDepth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// CurrentTick возвращает номер последнего тика
func (b *Bridge) CurrentTick() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tickID
}

// Enqueue ставит задачу в очередь и сразу возвращается.
// После остановки задача отбрасывается и возвращается ErrStopped.
func (b *Bridge) Enqueue(fn func()) error {
	if err := b.submit("write", fn); err != nil {
		b.logger.Warn("Задача отброшена: %v", err)
		return err
	}
	return nil
}

// EnqueueAndWait ставит задачу в очередь и ждёт её выполнения или отмены ctx.
// Отмена ctx не отменяет задачу: она всё равно будет выполнена позже.
func (b *Bridge) EnqueueAndWait(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := b.submit("write", func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("ожидание записи: %w", ctx.Err())
	}
}

// ReadThrough выполняет fn в горутине симуляции и возвращает результат.
// Паника внутри fn возвращается как ошибка.
func ReadThrough[T any](b *Bridge, fn func() T) (T, error) {
	var (
		result T
		perr   error
	)
	done := make(chan struct{})
	err := b.submit("read", func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				perr = fmt.Errorf("паника в задаче чтения: %v", r)
				panic(r)
			}
		}()
		result = fn()
	})
	if err != nil {
		return result, err
	}

	<-done
	return result, perr
}

// submit добавляет задачу в очередь и будит цикл
func (b *Bridge) submit(kind string, fn func()) error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		b.metrics.TaskDropped()
		return ErrStopped
	}
	b.queue = append(b.queue, task{kind: kind, fn: fn})
	depth := len(b.queue)
	b.mu.Unlock()

	b.metrics.SetQueueDepth(depth)
	select {
	case b.wake <- struct{}{}:
	default:
	}
	return nil
}

// drain выполняет все задачи, поставленные к моменту вызова и во время него
func (b *Bridge) drain() {
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.mu.Unlock()
			b.metrics.SetQueueDepth(0)
			return
		}
		batch := b.queue
		b.queue = nil
		b.mu.Unlock()

		for _, t := range batch {
			b.run(t)
		}
	}
}

// run выполняет одну задачу; паника не останавливает цикл
func (b *Bridge) run(t task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			b.metrics.TaskPanicked()
			b.logger.Error("Паника в задаче %s: %v", t.kind, r)
		}
		b.metrics.ObserveTask(t.kind, time.Since(start))
	}()
	t.fn()
}

func (b *Bridge) processTick() {
	b.mu.Lock()
	b.tickID++
	tickID := b.tickID
	b.mu.Unlock()

	b.metrics.Tick()
	if b.onTick != nil {
		b.onTick(tickID)
	}
}

// shutdown запрещает новые задачи и выполняет оставшиеся
func (b *Bridge) shutdown() {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()

	b.drain()
	b.logger.Info("Цикл симуляции остановлен")
}
