package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

// ============================================================================
// Fx 模块测试
// ============================================================================

// TestModule_Load 测试模块加载
func TestModule_Load(t *testing.T) {
	app := fxtest.New(t,
		Module(),
		fx.Invoke(func(rec *Recorder, reg *prometheus.Registry) {
			require.NotNil(t, rec)
			require.NotNil(t, reg)
		}),
	)
	defer app.RequireStart().RequireStop()
}

// TestModule_RecorderRegistered 测试 Recorder 指标落在模块注册表上
func TestModule_RecorderRegistered(t *testing.T) {
	var (
		rec *Recorder
		reg *prometheus.Registry
	)

	app := fxtest.New(t,
		Module(),
		fx.Populate(&rec, &reg),
	)
	app.RequireStart()
	defer app.RequireStop()

	rec.IncInbound()
	rec.IncOutbound()
	rec.IncOutbound()

	assert.Equal(t, float64(1), testutil.ToFloat64(rec.inboundPackets))
	assert.Equal(t, float64(2), testutil.ToFloat64(rec.outboundPackets))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
