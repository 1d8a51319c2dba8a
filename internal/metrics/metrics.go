// Package metrics содержит Prometheus-метрики моста и кодека памяти.
//
// Все методы безопасны для nil-получателя: компоненты, созданные без
// метрик (например, в тестах), просто ничего не записывают.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voxelmem"

// Collectors объединяет метрики одного процесса
type Collectors struct {
	queueDepth   prometheus.Gauge
	tasks        *prometheus.CounterVec
	taskDuration prometheus.Histogram
	dropped      prometheus.Counter
	panics       prometheus.Counter
	ticks        prometheus.Counter

	bytesRead    prometheus.Counter
	bytesWritten prometheus.Counter
	toggles      prometheus.Counter
	skipped      prometheus.Counter

	feedback        *prometheus.CounterVec
	feedbackDropped prometheus.Counter

	snapshots      prometheus.Counter
	snapshotErrors prometheus.Counter
}

// New создаёт метрики и регистрирует их в reg.
// Для тестов передавайте prometheus.NewRegistry(), чтобы не делить
// глобальный регистр.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "queue_depth",
			Help:      "Количество задач, ожидающих выполнения в горутине симуляции.",
		}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "tasks_total",
			Help:      "Выполненные задачи моста по видам.",
		}, []string{"kind"}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "task_duration_seconds",
			Help:      "Длительность выполнения задачи в горутине симуляции.",
			Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "tasks_dropped_total",
			Help:      "Задачи, отброшенные после остановки моста.",
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "task_panics_total",
			Help:      "Задачи, завершившиеся паникой.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "ticks_total",
			Help:      "Обработанные тики симуляции.",
		}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "bytes_read_total",
			Help:      "Байты, прочитанные из регионов.",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "bytes_written_total",
			Help:      "Байты, записанные в регионы.",
		}),
		toggles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "toggles_total",
			Help:      "Переключения рычагов при записи.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "skipped_cells_total",
			Help:      "Ячейки без возможности Actuation, пропущенные при записи.",
		}),
		feedback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feedback",
			Name:      "events_total",
			Help:      "Побочные эффекты изменений мира по типам.",
		}, []string{"kind"}),
		feedbackDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feedback",
			Name:      "events_dropped_total",
			Help:      "События, отброшенные из-за переполнения буфера публикации.",
		}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "snapshots_saved_total",
			Help:      "Сохранённые снимки регионов.",
		}),
		snapshotErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "snapshot_errors_total",
			Help:      "Ошибки сохранения и загрузки снимков.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			c.queueDepth, c.tasks, c.taskDuration, c.dropped, c.panics, c.ticks,
			c.bytesRead, c.bytesWritten, c.toggles, c.skipped,
			c.feedback, c.feedbackDropped,
			c.snapshots, c.snapshotErrors,
		)
	}
	return c
}

// SetQueueDepth обновляет глубину очереди моста
func (c *Collectors) SetQueueDepth(n int) {
	if c == nil {
		return
	}
	c.queueDepth.Set(float64(n))
}

// ObserveTask учитывает выполненную задачу
func (c *Collectors) ObserveTask(kind string, d time.Duration) {
	if c == nil {
		return
	}
	c.tasks.WithLabelValues(kind).Inc()
	c.taskDuration.Observe(d.Seconds())
}

// TaskDropped учитывает отброшенную задачу
func (c *Collectors) TaskDropped() {
	if c == nil {
		return
	}
	c.dropped.Inc()
}

// TaskPanicked учитывает задачу, завершившуюся паникой
func (c *Collectors) TaskPanicked() {
	if c == nil {
		return
	}
	c.panics.Inc()
}

// Tick учитывает тик симуляции
func (c *Collectors) Tick() {
	if c == nil {
		return
	}
	c.ticks.Inc()
}

// BytesRead учитывает прочитанные байты
func (c *Collectors) BytesRead(n int) {
	if c == nil {
		return
	}
	c.bytesRead.Add(float64(n))
}

// Write учитывает результат записи в регион
func (c *Collectors) Write(slots, toggles, skipped int) {
	if c == nil {
		return
	}
	c.bytesWritten.Add(float64(slots))
	c.toggles.Add(float64(toggles))
	c.skipped.Add(float64(skipped))
}

// Feedback учитывает опубликованное событие
func (c *Collectors) Feedback(kind string) {
	if c == nil {
		return
	}
	c.feedback.WithLabelValues(kind).Inc()
}

// FeedbackDropped учитывает отброшенное событие
func (c *Collectors) FeedbackDropped() {
	if c == nil {
		return
	}
	c.feedbackDropped.Inc()
}

// SnapshotSaved учитывает сохранённые снимки
func (c *Collectors) SnapshotSaved(n int) {
	if c == nil {
		return
	}
	c.snapshots.Add(float64(n))
}

// SnapshotError учитывает ошибку хранилища
func (c *Collectors) SnapshotError() {
	if c == nil {
		return
	}
	c.snapshotErrors.Inc()
}
