package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/kara-dl-go/internal/domain"
)

func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, c.Write(&pb))
	if pb.Counter != nil {
		return pb.GetCounter().GetValue()
	}
	return pb.GetGauge().GetValue()
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordTransition(domain.StatusRunning)
	m.RecordTransition(domain.StatusRunning)
	m.RecordTransition(domain.StatusDone)
	m.RecordEnqueued(3)
	m.RecordBlocked(2)
	m.TransferStarted()
	m.TransferStarted()
	m.TransferFinished()
	m.RecordTransfer("done", 2*time.Second)

	assert.Equal(t, 2.0, value(t, m.StatusTransitions.WithLabelValues("DL_RUNNING")))
	assert.Equal(t, 1.0, value(t, m.StatusTransitions.WithLabelValues("DL_DONE")))
	assert.Equal(t, 3.0, value(t, m.Enqueued))
	assert.Equal(t, 2.0, value(t, m.BlacklistBlocked))
	assert.Equal(t, 1.0, value(t, m.InFlight))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "kara_dl_transfer_duration_seconds")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTransition(domain.StatusDone)
		m.RecordEnqueued(1)
		m.RecordBlocked(1)
		m.RecordTransfer("failed", time.Second)
		m.TransferStarted()
		m.TransferFinished()
	})
}
