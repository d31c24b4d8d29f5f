package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/model"
)

func TestObserveCycle(t *testing.T) {
	m := New()
	dev := model.DeviceDescriptor{IP: "10.0.0.1"}
	start := time.Date(2024, 11, 29, 0, 0, 0, 0, time.UTC)

	m.ObserveCycle(core.CycleResult{
		Device: dev, State: core.Succeeded, Fetched: 3, Kept: 3, Delivered: 2,
		Watermark: start, StartedAt: start, Duration: 2 * time.Second,
	})
	m.ObserveCycle(core.CycleResult{
		Device: dev, State: core.Failed, Err: fmt.Errorf("%w: 500", core.ErrDelivery), Fetched: 3,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("10.0.0.1", "succeeded", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("10.0.0.1", "failed", "delivery")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.records.WithLabelValues("10.0.0.1", "fetched")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.records.WithLabelValues("10.0.0.1", "delivered")))
	assert.Equal(t, float64(start.Unix()+2), testutil.ToFloat64(m.lastSuccess.WithLabelValues("10.0.0.1")))
	assert.Equal(t, float64(start.Unix()), testutil.ToFloat64(m.watermark))
}

func TestObserveSweep(t *testing.T) {
	m := New()
	ok := core.CycleResult{State: core.Succeeded}
	failed := core.CycleResult{State: core.Failed, Err: errors.New("x")}

	m.ObserveSweep(core.SweepSummary{Results: []core.CycleResult{ok}})
	m.ObserveSweep(core.SweepSummary{Results: []core.CycleResult{ok, failed}})
	m.ObserveSweep(core.SweepSummary{Results: []core.CycleResult{failed}, Aborted: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweeps.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweeps.WithLabelValues("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweeps.WithLabelValues("aborted")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveCycle(core.CycleResult{})
	m.ObserveSweep(core.SweepSummary{})
}
