package session

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-secmsg/internal/core/admin"
	"github.com/dep2p/go-secmsg/internal/core/counter"
	"github.com/dep2p/go-secmsg/internal/core/eventloop"
	"github.com/dep2p/go-secmsg/internal/core/metrics"
	"github.com/dep2p/go-secmsg/internal/core/transport"
)

// Params Session 依赖参数
type Params struct {
	fx.In

	Admins    *admin.Table
	Counters  *counter.Manager
	Transport transport.Manager
	Recorder  *metrics.Recorder
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("session",
		fx.Provide(ProvideManager),
		fx.Invoke(wireTransport),
		fx.Invoke(hookTeardown),
	)
}

// ProvideManager 创建会话管理器
func ProvideManager(p Params) *Manager {
	return NewManager(p.Admins, p.Counters, p.Transport, p.Recorder)
}

// wireTransport 把会话管理器接到主传输的入站/错误回调上
//
// 在任何 OnStart 钩子之前执行，保证传输开始收包时回调已就位。
func wireTransport(m *Manager, tr transport.Manager) {
	tr.SetMessageSink(m.OnRawMessage)
	tr.SetErrorHandler(m.OnSendError)
}

// hookTeardown 关闭时拆除全部会话
//
// 会话状态归循环线程所有，Clear 必须投递到循环上执行。
func hookTeardown(lc fx.Lifecycle, m *Manager, loop *eventloop.Loop) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			if err := loop.Post(func() {
				m.Clear()
				close(done)
			}); err != nil {
				// 循环已停，没有并发访问者
				m.Clear()
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
