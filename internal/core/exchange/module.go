package exchange

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-secmsg/config"
	"github.com/dep2p/go-secmsg/internal/core/eventloop"
	"github.com/dep2p/go-secmsg/internal/core/metrics"
	"github.com/dep2p/go-secmsg/internal/core/session"
)

// Params Exchange 依赖参数
type Params struct {
	fx.In

	Sessions *session.Manager
	Loop     *eventloop.Loop
	Recorder *metrics.Recorder
	Config   *config.Config
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("exchange",
		fx.Provide(ProvideDispatcher),
		fx.Invoke(wireSessions),
		fx.Invoke(hookTeardown),
	)
}

// ProvideDispatcher 创建交换分发器
func ProvideDispatcher(p Params) *Dispatcher {
	return NewDispatcher(p.Sessions, p.Loop, p.Recorder, p.Config.Exchange.ResponseTimeout.Duration())
}

// wireSessions 把分发器装为会话层的消息代理
//
// 在任何 OnStart 钩子之前执行。
func wireSessions(d *Dispatcher, m *session.Manager) {
	m.SetMessageDelegate(d)
}

// hookTeardown 关闭时在循环线程上收拢所有打开的交换
func hookTeardown(lc fx.Lifecycle, d *Dispatcher, loop *eventloop.Loop) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			if err := loop.Post(func() {
				d.CloseAll()
				close(done)
			}); err != nil {
				d.CloseAll()
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
