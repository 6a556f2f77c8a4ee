package secmsg

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-secmsg/config"
	"github.com/dep2p/go-secmsg/internal/core/admin"
	"github.com/dep2p/go-secmsg/internal/core/counter"
	"github.com/dep2p/go-secmsg/internal/core/eventloop"
	"github.com/dep2p/go-secmsg/internal/core/exchange"
	"github.com/dep2p/go-secmsg/internal/core/metrics"
	"github.com/dep2p/go-secmsg/internal/core/session"
	"github.com/dep2p/go-secmsg/internal/core/transport"
	"github.com/dep2p/go-secmsg/internal/protocol/discovery"
	"github.com/dep2p/go-secmsg/internal/protocol/echo"
	"github.com/dep2p/go-secmsg/pkg/types"
)

// buildApp 组装 Fx 依赖图
//
// 模块顺序即 OnStart 顺序；OnStop 逆序执行，保证
// 协议注销 → 交换收拢 → 会话清空 → 传输关闭 → 循环停止。
// 构造函数不做任何 I/O，端口绑定全部发生在 OnStart 钩子里，
// 启动中途失败时 Fx 按逆序回收已启动的子系统。
func buildApp(cfg *config.Config, r *Responder) (*fx.App, error) {
	modules := []fx.Option{
		// ════════════════════════════════════════════════════════════════════
		// 1. 配置
		// ════════════════════════════════════════════════════════════════════
		fx.Supply(cfg),

		// ════════════════════════════════════════════════════════════════════
		// 2. 基础设施：事件循环、指标
		// ════════════════════════════════════════════════════════════════════
		eventloop.Module(),
		metrics.Module(),

		// ════════════════════════════════════════════════════════════════════
		// 3. 核心：分区表、计数器、传输、会话、交换
		// ════════════════════════════════════════════════════════════════════
		admin.Module(),
		counter.Module(),
		transport.Module(),
		session.Module(),
		exchange.Module(),

		// ════════════════════════════════════════════════════════════════════
		// 4. 协议：Echo、发现
		// ════════════════════════════════════════════════════════════════════
		echo.Module(),
		discovery.Module(),

		// ════════════════════════════════════════════════════════════════════
		// 5. 引导：配网会话、计数器耗尽升级、组件注入
		// ════════════════════════════════════════════════════════════════════
		fx.Invoke(installPairing),
		fx.Invoke(wireCounterEscalation),
		fx.Invoke(injectComponents(r)),

		// ════════════════════════════════════════════════════════════════════
		// 6. Fx 配置
		// ════════════════════════════════════════════════════════════════════
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
		fx.NopLogger,
	}

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// installPairing 安装配网会话
//
// 真实握手模块的接缝：这里直接以配置中的测试密钥建会话。
// 对端地址未知，从第一条通过认证的入站报文学习。
func installPairing(m *session.Manager, cfg *config.Config) error {
	secret, err := cfg.PairingSecretBytes()
	if err != nil {
		return err
	}
	_, err = m.InstallPairing(
		types.PartitionID(cfg.Node.PartitionID),
		types.NodeID(cfg.Pairing.PeerNodeID),
		secret,
		types.RoleResponder,
		types.Address{},
	)
	return err
}

// wireCounterEscalation 出站计数器耗尽时拆除会话
//
// 计数器不回绕，会话只能重建。
func wireCounterEscalation(m *session.Manager) {
	m.SetCounterExhaustedHook(func(sess *session.Session) {
		logger.Error("出站计数器耗尽，拆除会话",
			"partition", sess.Partition(),
			"peer", sess.PeerNode())
		_ = m.Remove(sess.Partition(), sess.PeerNode())
	})
}

// responderComponents 注入给 Responder 的组件
//
// 发现组件在未启用时为 nil。
type responderComponents struct {
	fx.In

	Loop       *eventloop.Loop
	Transport  transport.Manager
	Sessions   *session.Manager
	Dispatcher *exchange.Dispatcher
	EchoServer *echo.Server
	EchoClient *echo.Client
	Discovery  *discovery.Server
	Announcer  *discovery.Client
	Registry   *prometheus.Registry
}

// injectComponents 创建组件注入函数
func injectComponents(r *Responder) func(responderComponents) {
	return func(c responderComponents) {
		r.loop = c.Loop
		r.transport = c.Transport
		r.sessions = c.Sessions
		r.echoServer = c.EchoServer
		r.echoClient = c.EchoClient
		r.discovery = c.Discovery
		r.announcer = c.Announcer
		r.registry = c.Registry
	}
}
