package transport

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/go-secmsg/config"
	"github.com/dep2p/go-secmsg/internal/core/eventloop"
)

// Params 传输依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Loop       *eventloop.Loop
}

// Module 返回主传输的 Fx 模块
//
// 按配置在无连接（udp）与面向连接（tcp）之间二选一，同一逻辑服务
// 永远只用一种。发现/通告传输不在此处：它由 discovery 包独立持有。
//
// 构造不做 I/O，绑定发生在 OnStart；绑定失败（ErrBind）触发 fx 对
// 已启动子系统的逆序回收。
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(ProvidePrimary),
		fx.Invoke(hookPrimary),
	)
}

// ProvidePrimary 按模式创建主传输
func ProvidePrimary(p Params) (Manager, error) {
	cfg := PrimaryConfigFromUnified(p.UnifiedCfg)
	mode := config.ModeUDP
	if p.UnifiedCfg != nil {
		mode = p.UnifiedCfg.Transport.Mode
	}

	switch mode {
	case config.ModeUDP:
		return NewUDP(cfg, p.Loop), nil
	case config.ModeTCP:
		return NewTCP(cfg, p.Loop), nil
	default:
		return nil, fmt.Errorf("transport: unknown mode %q", mode)
	}
}

// hookPrimary 挂接主传输的启动与关闭
func hookPrimary(lc fx.Lifecycle, m Manager) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return m.Start()
		},
		OnStop: func(_ context.Context) error {
			return m.Close()
		},
	})
}

// PrimaryConfigFromUnified 从统一配置创建主传输配置
func PrimaryConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return Config{
		ListenAddress:        cfg.Transport.ListenAddress,
		Port:                 cfg.Transport.Port,
		MaxActiveConnections: cfg.Transport.TCP.MaxActiveConnections,
		MaxPendingPackets:    cfg.Transport.TCP.MaxPendingPackets,
	}
}

// DiscoveryConfigFromUnified 从统一配置创建发现传输配置
func DiscoveryConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return Config{
		ListenAddress: cfg.Transport.ListenAddress,
		Port:          cfg.DiscoveryPort(),
	}
}
