package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecorder_Counters 测试计数器递增
func TestRecorder_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)

	rec.IncInbound()
	rec.IncInbound()
	rec.IncDropped(ReasonReplay)
	rec.IncDropped(ReasonReplay)
	rec.IncDropped(ReasonUnknownProtocol)
	rec.IncExchangeTimedOut()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	assert.Equal(t, float64(2), testutil.ToFloat64(rec.inboundPackets))
	assert.Equal(t, float64(2), testutil.ToFloat64(rec.droppedPackets.WithLabelValues(ReasonReplay)))
	assert.Equal(t, float64(1), testutil.ToFloat64(rec.droppedPackets.WithLabelValues(ReasonUnknownProtocol)))
	assert.Equal(t, float64(1), testutil.ToFloat64(rec.exchangesTimedOut))
}

// TestRecorder_NilSafe 测试 nil 接收者安全
func TestRecorder_NilSafe(t *testing.T) {
	var rec *Recorder
	rec.IncInbound()
	rec.IncDropped(ReasonMalformed)
	rec.IncExchangeOpened()
	rec.IncEchoRequest()
	rec.IncAnnouncement()
	rec.IncSendFailure()
}
