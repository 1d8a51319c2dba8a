package eventbus

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	publishedDesc = prometheus.NewDesc("eventbus_messages_published_total", "Опубликовано событий.", nil, nil)
	consumedDesc  = prometheus.NewDesc("eventbus_messages_consumed_total", "Доставлено событий подписчикам.", nil, nil)
	droppedDesc   = prometheus.NewDesc("eventbus_messages_dropped_total", "Событий отброшено при переполнении или ошибке.", nil, nil)
	inflightDesc  = prometheus.NewDesc("eventbus_messages_inflight", "Событий в очереди шины.", nil, nil)
)

// MetricsExporter отдаёт Stats шины в Prometheus в момент сбора
// и считает события обратной связи по видам через собственную подписку.
type MetricsExporter struct {
	bus    EventBus
	byType *prometheus.CounterVec
	sub    Subscription
}

// NewMetricsExporter регистрирует экспортер в reg
func NewMetricsExporter(bus EventBus, reg prometheus.Registerer) *MetricsExporter {
	me := &MetricsExporter{
		bus: bus,
		byType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "events_total",
			Help:      "События по видам (LeverClick, RegionRegenerated...).",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(me, me.byType)
	}
	return me
}

func (m *MetricsExporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- publishedDesc
	ch <- consumedDesc
	ch <- droppedDesc
	ch <- inflightDesc
}

func (m *MetricsExporter) Collect(ch chan<- prometheus.Metric) {
	s := m.bus.Metrics()
	ch <- prometheus.MustNewConstMetric(publishedDesc, prometheus.CounterValue, float64(s.Published))
	ch <- prometheus.MustNewConstMetric(consumedDesc, prometheus.CounterValue, float64(s.Consumed))
	ch <- prometheus.MustNewConstMetric(droppedDesc, prometheus.CounterValue, float64(s.Dropped))
	ch <- prometheus.MustNewConstMetric(inflightDesc, prometheus.GaugeValue, float64(s.InFlight))
}

// Start подписывает счётчик по видам на шину
func (m *MetricsExporter) Start(ctx context.Context) error {
	sub, err := m.bus.Subscribe(ctx, Filter{}, func(_ context.Context, ev *Envelope) {
		m.byType.WithLabelValues(ev.EventType).Inc()
	})
	if err != nil {
		return err
	}
	m.sub = sub
	return nil
}

func (m *MetricsExporter) Stop() {
	if m.sub != nil {
		m.sub.Unsubscribe()
		m.sub = nil
	}
}
