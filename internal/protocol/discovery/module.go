package discovery

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-secmsg/config"
	"github.com/dep2p/go-secmsg/internal/core/eventloop"
	"github.com/dep2p/go-secmsg/internal/core/metrics"
	"github.com/dep2p/go-secmsg/internal/core/transport"
	"github.com/dep2p/go-secmsg/pkg/types"
)

// Params Discovery 依赖参数
type Params struct {
	fx.In

	Loop     *eventloop.Loop
	Recorder *metrics.Recorder
	Config   *config.Config
}

// Result Discovery 提供的组件
type Result struct {
	fx.Out

	Server *Server
	Client *Client
}

// Module 返回 Fx 模块
//
// cfg.Discovery.Enabled 为 false 时不提供任何组件。
func Module() fx.Option {
	return fx.Module("discovery",
		fx.Provide(Provide),
		fx.Invoke(hookServer),
	)
}

// Provide 创建发现监听器与通告发送方
//
// 通告始终走独立的 UDP 端口，与主传输的 UDP/TCP 选择无关。
func Provide(p Params) (Result, error) {
	if !p.Config.Discovery.Enabled {
		return Result{}, nil
	}
	tr := transport.NewUDP(transport.DiscoveryConfigFromUnified(p.Config), p.Loop)
	server, err := NewServer(tr, p.Recorder, p.Config.Discovery.DedupCacheSize)
	if err != nil {
		return Result{}, err
	}
	client := NewClient(tr, types.NodeID(p.Config.Node.NodeID))
	return Result{Server: server, Client: client}, nil
}

// hookServer 启动/关闭发现传输
func hookServer(lc fx.Lifecycle, s *Server, cfg *config.Config) {
	if !cfg.Discovery.Enabled {
		logger.Info("发现监听未启用")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return s.Start()
		},
		OnStop: func(_ context.Context) error {
			return s.Close()
		},
	})
}
