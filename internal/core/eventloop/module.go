package eventloop

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
)

// Module 返回 Fx 模块
//
// 事件循环最先启动、最后停止：其余子系统的收尾任务都可能需要
// 在循环线程上执行。
func Module() fx.Option {
	return fx.Module("eventloop",
		fx.Provide(ProvideClock),
		fx.Provide(New),
		fx.Invoke(runLoop),
	)
}

// ProvideClock 提供真实时钟
func ProvideClock() clock.Clock {
	return clock.New()
}

// runLoop 挂接循环的启动与停止
func runLoop(lc fx.Lifecycle, loop *Loop) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				_ = loop.Run()
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return loop.Stop(ctx)
		},
	})
}
