package echo

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-secmsg/config"
	"github.com/dep2p/go-secmsg/internal/core/eventloop"
	"github.com/dep2p/go-secmsg/internal/core/exchange"
	"github.com/dep2p/go-secmsg/internal/core/metrics"
	"github.com/dep2p/go-secmsg/pkg/types"
)

// Params Echo 依赖参数
type Params struct {
	fx.In

	Dispatcher *exchange.Dispatcher
	Recorder   *metrics.Recorder
	Config     *config.Config
}

// Module 返回 Fx 模块
//
// cfg.Echo.Enabled 为 false 时仍提供 Server 与 Client，
// 只是不向分发器注册响应器（入站 Echo 请求按未知协议丢弃）。
func Module() fx.Option {
	return fx.Module("echo",
		fx.Provide(ProvideServer),
		fx.Provide(ProvideClient),
		fx.Invoke(hookRegister),
	)
}

// ProvideServer 创建 Echo 响应器
func ProvideServer(p Params) *Server {
	return NewServer(p.Recorder)
}

// ProvideClient 创建 Echo 发起方
func ProvideClient(d *exchange.Dispatcher, loop *eventloop.Loop) *Client {
	return NewClient(d, loop)
}

// hookRegister 启动时注册响应器，停止时注销
//
// 响应器表归循环线程所有，注册与注销都投递到循环上执行。
func hookRegister(lc fx.Lifecycle, s *Server, d *exchange.Dispatcher, loop *eventloop.Loop, cfg *config.Config) {
	if !cfg.Echo.Enabled {
		logger.Info("Echo 响应器未启用")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return onLoop(ctx, loop, func() error {
				return d.RegisterResponder(types.ProtocolEcho, s)
			})
		},
		OnStop: func(ctx context.Context) error {
			return onLoop(ctx, loop, func() error {
				return d.UnregisterResponder(types.ProtocolEcho)
			})
		},
	})
}

// onLoop 在循环线程上执行并等待结果
func onLoop(ctx context.Context, loop *eventloop.Loop, fn func() error) error {
	errCh := make(chan error, 1)
	if err := loop.Post(func() { errCh <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
