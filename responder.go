package secmsg

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-secmsg/config"
	"github.com/dep2p/go-secmsg/internal/core/eventloop"
	"github.com/dep2p/go-secmsg/internal/core/session"
	"github.com/dep2p/go-secmsg/internal/core/transport"
	"github.com/dep2p/go-secmsg/internal/protocol/discovery"
	"github.com/dep2p/go-secmsg/internal/protocol/echo"
	"github.com/dep2p/go-secmsg/pkg/lib/log"
	"github.com/dep2p/go-secmsg/pkg/types"
)

var logger = log.Logger("secmsg")

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期常量
// ════════════════════════════════════════════════════════════════════════════

const (
	// startTimeout 启动超时（Fx App Start）
	startTimeout = 30 * time.Second

	// stopTimeout 停止超时（Fx App Stop）
	stopTimeout = 10 * time.Second
)

// State 响应器生命周期状态
type State int32

const (
	// StateUnstarted 尚未启动
	StateUnstarted State = iota
	// StateInitializing 正在启动
	StateInitializing
	// StateRunning 运行中
	StateRunning
	// StateShuttingDown 正在停止
	StateShuttingDown
	// StateStopped 已停止（终态）
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "Unstarted"
	case StateInitializing:
		return "Initializing"
	case StateRunning:
		return "Running"
	case StateShuttingDown:
		return "ShuttingDown"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              Responder
// ════════════════════════════════════════════════════════════════════════════

// Responder 安全消息响应器
//
// 一个进程内实例：主传输 + 会话表 + 交换分发 + Echo/发现协议。
// 通过 New 创建、Start 启动、Stop 关闭；Stop 之后不可复用。
type Responder struct {
	mu    sync.Mutex
	state State

	cfg *config.Config
	app *fx.App

	// 由 Fx 注入的组件
	loop       *eventloop.Loop
	transport  transport.Manager
	sessions   *session.Manager
	echoServer *echo.Server
	echoClient *echo.Client
	discovery  *discovery.Server
	announcer  *discovery.Client
	registry   *prometheus.Registry
}

// MetricsRegistry 进程私有的指标注册表
//
// 调用方可自行挂接 promhttp 暴露。
func (r *Responder) MetricsRegistry() *prometheus.Registry {
	return r.registry
}

// New 创建响应器
//
// 只做配置合成与依赖图构建，不绑定任何端口；
// 端口与 goroutine 都在 Start 中出现。
func New(opts ...Option) (*Responder, error) {
	o := newOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	cfg, err := o.toConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := applyLogConfig(cfg); err != nil {
		return nil, err
	}

	r := &Responder{cfg: cfg, state: StateUnstarted}
	app, err := buildApp(cfg, r)
	if err != nil {
		return nil, err
	}
	r.app = app
	return r, nil
}

// Start 启动响应器
//
// 依次启动事件循环、主传输与发现传输，并注册协议响应器。
// 任一子系统启动失败时，已启动的子系统按逆序回收，
// 绑定的端口全部释放。
func (r *Responder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateRunning, StateInitializing:
		return ErrAlreadyStarted
	case StateShuttingDown, StateStopped:
		return ErrResponderClosed
	}

	r.state = StateInitializing
	logger.Info("正在启动响应器",
		"nodeID", r.cfg.Node.NodeID,
		"mode", r.cfg.Transport.Mode,
		"port", r.cfg.Transport.Port)

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := r.app.Start(startCtx); err != nil {
		r.state = StateStopped
		logger.Error("响应器启动失败", "error", err)
		return fmt.Errorf("start failed: %w", err)
	}

	r.state = StateRunning
	logger.Info("响应器已就绪", "addr", r.transport.LocalAddr())
	return nil
}

// Stop 停止响应器
//
// 逆序拆除：协议注销 → 交换收拢 → 会话清空 → 传输关闭 → 循环停止。
func (r *Responder) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateUnstarted:
		return ErrNotStarted
	case StateStopped, StateShuttingDown:
		return nil
	}

	r.state = StateShuttingDown
	logger.Info("正在停止响应器")

	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()

	err := r.app.Stop(stopCtx)
	r.state = StateStopped
	if err != nil {
		logger.Error("响应器停止出错", "error", err)
		return fmt.Errorf("stop failed: %w", err)
	}
	logger.Info("响应器已停止")
	return nil
}

// State 当前生命周期状态
func (r *Responder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Config 生效的配置（只读使用）
func (r *Responder) Config() *config.Config {
	return r.cfg
}

// ════════════════════════════════════════════════════════════════════════════
//                              运行时访问器
// ════════════════════════════════════════════════════════════════════════════

// LocalAddr 主传输的本地地址
func (r *Responder) LocalAddr() (types.Address, error) {
	if r.State() != StateRunning {
		return types.Address{}, ErrNotStarted
	}
	return r.transport.LocalAddr(), nil
}

// DiscoveryAddr 发现传输的本地地址
func (r *Responder) DiscoveryAddr() (types.Address, error) {
	if r.State() != StateRunning {
		return types.Address{}, ErrNotStarted
	}
	if r.discovery == nil {
		return types.Address{}, ErrDiscoveryDisabled
	}
	return r.discovery.LocalAddr(), nil
}

// SessionCount 当前会话数
//
// 会话表归循环线程所有，计数经循环线程读取。
func (r *Responder) SessionCount(ctx context.Context) (int, error) {
	if r.State() != StateRunning {
		return 0, ErrNotStarted
	}
	countCh := make(chan int, 1)
	if err := r.loop.Post(func() { countCh <- r.sessions.Count() }); err != nil {
		return 0, err
	}
	select {
	case n := <-countCh:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Echo 通过配网会话发送 Echo 请求并等待回显
//
// 练习发起方路径；超时由交换层计时器决定。
func (r *Responder) Echo(ctx context.Context, payload []byte) ([]byte, error) {
	if r.State() != StateRunning {
		return nil, ErrNotStarted
	}
	sessCh := make(chan *session.Session, 1)
	errCh := make(chan error, 1)
	if err := r.loop.Post(func() {
		sess, err := r.sessions.Lookup(
			types.PartitionID(r.cfg.Node.PartitionID),
			types.NodeID(r.cfg.Pairing.PeerNodeID))
		if err != nil {
			errCh <- err
			return
		}
		sessCh <- sess
	}); err != nil {
		return nil, err
	}
	var sess *session.Session
	select {
	case sess = <-sessCh:
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.echoClient.Send(ctx, sess, payload)
}

// Announce 向 dest 发送一条发现通告
//
// instanceName 为空时生成随机实例名，返回实际使用的实例名。
func (r *Responder) Announce(dest types.Address, instanceName string) (string, error) {
	if r.State() != StateRunning {
		return "", ErrNotStarted
	}
	if r.announcer == nil {
		return "", ErrDiscoveryDisabled
	}
	type result struct {
		name string
		err  error
	}
	resultCh := make(chan result, 1)
	if err := r.loop.Post(func() {
		name, err := r.announcer.Announce(dest, instanceName)
		resultCh <- result{name: name, err: err}
	}); err != nil {
		return "", err
	}
	res := <-resultCh
	return res.name, res.err
}

// SetEchoRequestHook 安装 Echo 请求观察钩子
//
// 必须在 Start 之前调用。
func (r *Responder) SetEchoRequestHook(fn func(payload []byte)) {
	r.echoServer.SetRequestReceived(fn)
}

// SetInstanceNameResolver 安装发现实例名解析钩子
//
// 必须在 Start 之前调用；发现未启用时返回 ErrDiscoveryDisabled。
func (r *Responder) SetInstanceNameResolver(fn func(name string)) error {
	if r.discovery == nil {
		return ErrDiscoveryDisabled
	}
	r.discovery.SetInstanceNameResolver(fn)
	return nil
}

// applyLogConfig 应用日志级别与输出文件
func applyLogConfig(cfg *config.Config) error {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if cfg.Log.File != "" {
		f, ferr := log.OpenFile(cfg.Log.File)
		if ferr != nil {
			return ferr
		}
		log.SetOutputWithLevel(f, level)
		return nil
	}
	log.SetLevel(level)
	return nil
}
