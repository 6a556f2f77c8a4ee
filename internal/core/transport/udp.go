package transport

import (
	"fmt"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-secmsg/internal/core/eventloop"
	"github.com/dep2p/go-secmsg/pkg/lib/log"
	"github.com/dep2p/go-secmsg/pkg/lib/wire"
	"github.com/dep2p/go-secmsg/pkg/types"
)

var udpLogger = log.Logger("secmsg/transport/udp")

// UDP 无连接传输
type UDP struct {
	cfg  Config
	loop *eventloop.Loop

	sink    RawSink
	onError ErrorHandler

	conn      *net.UDPConn
	localAddr types.Address

	started atomic.Bool
	closed  atomic.Bool
	wg      sync.WaitGroup
}

// 确保实现接口
var _ Manager = (*UDP)(nil)

// NewUDP 创建 UDP 传输（不做任何 I/O，绑定发生在 Start）
func NewUDP(cfg Config, loop *eventloop.Loop) *UDP {
	return &UDP{cfg: cfg, loop: loop}
}

// SetMessageSink 安装入站回调
func (t *UDP) SetMessageSink(sink RawSink) {
	t.sink = sink
}

// SetErrorHandler 安装投递失败回调
func (t *UDP) SetErrorHandler(h ErrorHandler) {
	t.onError = h
}

// Start 绑定本地端点并启动收包循环
func (t *UDP) Start() error {
	listenAddr := fmt.Sprintf("%s:%d", t.cfg.ListenAddress, t.cfg.Port)
	udpAddr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBind, listenAddr, err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBind, listenAddr, err)
	}

	local, err := types.AddressFromNetAddr(conn.LocalAddr())
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: %v", ErrBind, err)
	}

	t.conn = conn
	t.localAddr = local
	t.started.Store(true)

	t.wg.Add(1)
	go t.readLoop()

	udpLogger.Info("UDP 传输已启动", "listen", local.String())
	return nil
}

// LocalAddr 返回实际绑定的本地地址
func (t *UDP) LocalAddr() types.Address {
	return t.localAddr
}

// Send 发送一个报文
func (t *UDP) Send(dest types.Address, data []byte) error {
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

	if _, err := t.conn.WriteToUDPAddrPort(data, netip.AddrPortFrom(dest.IP, dest.Port)); err != nil {
		// 投递失败是异步语义：上报回调，Send 本身不失败
		t.reportError(dest, err)
	}
	return nil
}

// Close 关闭传输
func (t *UDP) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	if t.conn != nil {
		_ = t.conn.Close()
	}
	t.wg.Wait()
	udpLogger.Info("UDP 传输已关闭", "listen", t.localAddr.String())
	return nil
}

// readLoop 收包循环（独立 goroutine，经事件循环移交数据）
func (t *UDP) readLoop() {
	defer t.wg.Done()

	buf := make([]byte, wire.MaxPacketSize)
	for {
		n, src, err := t.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if t.closed.Load() {
				return
			}
			udpLogger.Warn("UDP 读取失败", "error", err)
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		srcAddr := types.Address{IP: src.Addr().Unmap(), Port: src.Port()}

		if t.sink == nil {
			continue
		}
		if err := t.loop.Post(func() { t.sink(srcAddr, data) }); err != nil {
			udpLogger.Warn("入站报文丢弃", "src", srcAddr.String(), "error", err)
		}
	}
}

func (t *UDP) reportError(dest types.Address, err error) {
	udpLogger.Warn("UDP 投递失败", "dest", dest.String(), "error", err)
	if t.onError != nil {
		t.onError(dest, err)
	}
}
