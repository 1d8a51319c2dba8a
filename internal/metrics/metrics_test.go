package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered возвращает сумму значений метрики с указанным именем
func gathered(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}

func TestCollectorsRegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.SetQueueDepth(3)
	c.ObserveTask("read", time.Millisecond)
	c.ObserveTask("read", time.Millisecond)
	c.Write(4, 10, 2)
	c.Feedback("LeverClick")

	assert.Equal(t, 3.0, gathered(t, reg, "voxelmem_bridge_queue_depth"))
	assert.Equal(t, 2.0, gathered(t, reg, "voxelmem_bridge_tasks_total"))
	assert.Equal(t, 2.0, gathered(t, reg, "voxelmem_bridge_task_duration_seconds"))
	assert.Equal(t, 4.0, gathered(t, reg, "voxelmem_codec_bytes_written_total"))
	assert.Equal(t, 10.0, gathered(t, reg, "voxelmem_codec_toggles_total"))
	assert.Equal(t, 1.0, gathered(t, reg, "voxelmem_feedback_events_total"))
}

func TestNilCollectorsAreNoop(t *testing.T) {
	var c *Collectors
	assert.NotPanics(t, func() {
		c.SetQueueDepth(1)
		c.ObserveTask("write", time.Second)
		c.TaskDropped()
		c.TaskPanicked()
		c.Tick()
		c.BytesRead(1)
		c.Write(1, 1, 1)
		c.Feedback("x")
		c.FeedbackDropped()
		c.SnapshotSaved(1)
		c.SnapshotError()
	})
}
