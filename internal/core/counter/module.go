package counter

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-secmsg/config"
)

// Params Counter 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("counter",
		fx.Provide(ProvideManager),
	)
}

// ProvideManager 从统一配置创建计数器管理器
func ProvideManager(p Params) (*Manager, error) {
	return NewManager(ConfigFromUnified(p.UnifiedCfg))
}

// ConfigFromUnified 从统一配置创建计数器配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		WindowSize:     cfg.Counter.WindowSize,
		MaxForwardJump: cfg.Counter.MaxForwardJump,
	}
}
