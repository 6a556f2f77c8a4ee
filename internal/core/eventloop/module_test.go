package eventloop

import (
	"testing"
	"time"

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
		fx.Invoke(func(loop *Loop) {
			require.NotNil(t, loop)
		}),
	)
	defer app.RequireStart().RequireStop()
}

// TestModule_LoopRunsAfterStart 测试启动后循环开始消费任务
func TestModule_LoopRunsAfterStart(t *testing.T) {
	var loop *Loop

	app := fxtest.New(t,
		Module(),
		fx.Populate(&loop),
	)
	app.RequireStart()

	ran := make(chan struct{})
	require.NoError(t, loop.Post(func() { close(ran) }))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("任务未在循环线程上执行")
	}

	app.RequireStop()

	// 停止后拒绝新任务
	require.Error(t, loop.Post(func() {}))
}
