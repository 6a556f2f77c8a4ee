package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	tec "github.com/jbenet/go-temp-err-catcher"

	"github.com/dep2p/go-secmsg/internal/core/eventloop"
	"github.com/dep2p/go-secmsg/pkg/lib/log"
	"github.com/dep2p/go-secmsg/pkg/lib/wire"
	"github.com/dep2p/go-secmsg/pkg/types"
)

var tcpLogger = log.Logger("secmsg/transport/tcp")

// DialTimeout 对端拨号超时
const DialTimeout = 10 * time.Second

// TCP 面向连接的传输
//
// 连接数超过配置上限时，新到的连接尝试被静默丢弃；每条连接的出站
// 队列有界，溢出经错误回调上报。
type TCP struct {
	cfg  Config
	loop *eventloop.Loop

	sink    RawSink
	onError ErrorHandler

	listener  net.Listener
	localAddr types.Address

	mu    sync.Mutex
	conns map[types.Address]*conn

	started atomic.Bool
	closed  atomic.Bool
	wg      sync.WaitGroup
}

// 确保实现接口
var _ Manager = (*TCP)(nil)

// NewTCP 创建 TCP 传输（不做任何 I/O，绑定发生在 Start）
func NewTCP(cfg Config, loop *eventloop.Loop) *TCP {
	return &TCP{
		cfg:   cfg,
		loop:  loop,
		conns: make(map[types.Address]*conn),
	}
}

// SetMessageSink 安装入站回调
func (t *TCP) SetMessageSink(sink RawSink) {
	t.sink = sink
}

// SetErrorHandler 安装投递失败回调
func (t *TCP) SetErrorHandler(h ErrorHandler) {
	t.onError = h
}

// Start 绑定监听端点并启动接受循环
func (t *TCP) Start() error {
	listenAddr := fmt.Sprintf("%s:%d", t.cfg.ListenAddress, t.cfg.Port)
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBind, listenAddr, err)
	}

	local, err := types.AddressFromNetAddr(listener.Addr())
	if err != nil {
		_ = listener.Close()
		return fmt.Errorf("%w: %v", ErrBind, err)
	}

	t.listener = listener
	t.localAddr = local
	t.started.Store(true)

	t.wg.Add(1)
	go t.acceptLoop()

	tcpLogger.Info("TCP 传输已启动", "listen", local.String(),
		"maxConns", t.cfg.MaxActiveConnections, "maxPending", t.cfg.MaxPendingPackets)
	return nil
}

// LocalAddr 返回实际绑定的本地地址
func (t *TCP) LocalAddr() types.Address {
	return t.localAddr
}

// Send 发送一个报文
//
// 没有到 dest 的连接时主动拨号（发起方路径）；出站队列溢出经
// 错误回调上报，Send 本身不失败。
func (t *TCP) Send(dest types.Address, data []byte) error {
	if !t.started.Load() {
		return ErrNotStarted
	}
	if t.closed.Load() {
		return ErrClosed
	}
	if !dest.IsValid() {
		return ErrInvalidAddress
	}
	if len(data) > wire.MaxPacketSize {
		return ErrPacketTooLarge
	}

	c, err := t.connTo(dest)
	if err != nil {
		t.reportError(dest, err)
		return nil
	}
	if err := c.enqueue(data); err != nil {
		t.reportError(dest, err)
	}
	return nil
}

// Close 关闭监听器和全部连接
func (t *TCP) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	if t.listener != nil {
		_ = t.listener.Close()
	}

	t.mu.Lock()
	conns := make([]*conn, 0, len(t.conns))
	for _, c := range t.conns {
		conns = append(conns, c)
	}
	t.mu.Unlock()
	for _, c := range conns {
		c.close()
	}

	t.wg.Wait()
	tcpLogger.Info("TCP 传输已关闭", "listen", t.localAddr.String())
	return nil
}

// ActiveConnections 返回当前活动连接数（仅诊断用）
func (t *TCP) ActiveConnections() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// acceptLoop 接受循环，临时性错误不退出
func (t *TCP) acceptLoop() {
	defer t.wg.Done()

	var catcher tec.TempErrCatcher
	for {
		raw, err := t.listener.Accept()
		if err != nil {
			if catcher.IsTemporary(err) {
				continue
			}
			if !t.closed.Load() {
				tcpLogger.Error("TCP 接受失败", "error", err)
			}
			return
		}

		peer, err := types.AddressFromNetAddr(raw.RemoteAddr())
		if err != nil {
			_ = raw.Close()
			continue
		}

		if !t.track(peer, raw) {
			// 超出连接上限：静默丢弃
			tcpLogger.Debug("连接超出上限，丢弃", "peer", peer.String())
			_ = raw.Close()
		}
	}
}

// track 将新连接登记进连接表，超限返回 false
func (t *TCP) track(peer types.Address, raw net.Conn) bool {
	t.mu.Lock()
	if len(t.conns) >= t.cfg.MaxActiveConnections {
		t.mu.Unlock()
		return false
	}
	if old, ok := t.conns[peer]; ok {
		// 同一对端重连：替换旧连接
		delete(t.conns, peer)
		defer old.close()
	}
	c := newConn(t, raw, peer)
	t.conns[peer] = c
	t.mu.Unlock()

	c.start()
	return true
}

// connTo 返回到 dest 的连接，必要时拨号
func (t *TCP) connTo(dest types.Address) (*conn, error) {
	t.mu.Lock()
	if c, ok := t.conns[dest]; ok {
		t.mu.Unlock()
		return c, nil
	}
	t.mu.Unlock()

	raw, err := net.DialTimeout("tcp", dest.String(), DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("tcp: dial %s: %w", dest.String(), err)
	}
	if !t.track(dest, raw) {
		_ = raw.Close()
		return nil, errors.New("tcp: connection limit reached")
	}

	t.mu.Lock()
	c := t.conns[dest]
	t.mu.Unlock()
	if c == nil {
		return nil, fmt.Errorf("tcp: connection to %s lost", dest.String())
	}
	return c, nil
}

// removeConn 从连接表摘除一条连接
func (t *TCP) removeConn(peer types.Address, c *conn) {
	t.mu.Lock()
	if cur, ok := t.conns[peer]; ok && cur == c {
		delete(t.conns, peer)
	}
	t.mu.Unlock()
}

// deliver 将入站报文移交事件循环
func (t *TCP) deliver(src types.Address, data []byte) {
	if t.sink == nil {
		return
	}
	if err := t.loop.Post(func() { t.sink(src, data) }); err != nil {
		tcpLogger.Warn("入站报文丢弃", "src", src.String(), "error", err)
	}
}

// reportError 上报异步投递失败
func (t *TCP) reportError(dest types.Address, err error) {
	tcpLogger.Warn("TCP 投递失败", "dest", dest.String(), "error", err)
	if t.onError != nil {
		t.onError(dest, err)
	}
}
