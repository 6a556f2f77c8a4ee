package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-secmsg/internal/core/eventloop"
	"github.com/dep2p/go-secmsg/pkg/types"
)

// loopbackConfig 环回测试配置（端口 0 = 随机端口）
func loopbackConfig() Config {
	return Config{
		ListenAddress:        "127.0.0.1",
		Port:                 0,
		MaxActiveConnections: 4,
		MaxPendingPackets:    2,
	}
}

func startLoop(t *testing.T) *eventloop.Loop {
	t.Helper()
	loop := eventloop.New(nil)
	go func() { _ = loop.Run() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = loop.Stop(ctx)
	})
	return loop
}

// collector 线程安全的收包记录器
type collector struct {
	mu      sync.Mutex
	packets [][]byte
	sources []types.Address
	notify  chan struct{}
}

func newCollector() *collector {
	return &collector{notify: make(chan struct{}, 64)}
}

func (c *collector) sink(src types.Address, data []byte) {
	c.mu.Lock()
	c.packets = append(c.packets, data)
	c.sources = append(c.sources, src)
	c.mu.Unlock()
	c.notify <- struct{}{}
}

func (c *collector) wait(t *testing.T, n int) [][]byte {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		c.mu.Lock()
		got := len(c.packets)
		c.mu.Unlock()
		if got >= n {
			break
		}
		select {
		case <-c.notify:
		case <-deadline:
			t.Fatalf("等待 %d 个报文超时，已收到 %d", n, got)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.packets...)
}

// TestUDP_RoundTrip 测试 UDP 双向收发
func TestUDP_RoundTrip(t *testing.T) {
	loop := startLoop(t)

	a := NewUDP(loopbackConfig(), loop)
	b := NewUDP(loopbackConfig(), loop)

	colA, colB := newCollector(), newCollector()
	a.SetMessageSink(colA.sink)
	b.SetMessageSink(colB.sink)

	require.NoError(t, a.Start())
	require.NoError(t, b.Start())
	defer func() { _ = a.Close(); _ = b.Close() }()

	require.NoError(t, a.Send(b.LocalAddr(), []byte("ping")))
	got := colB.wait(t, 1)
	assert.Equal(t, []byte("ping"), got[0])

	require.NoError(t, b.Send(a.LocalAddr(), []byte("pong")))
	assert.Equal(t, []byte("pong"), colA.wait(t, 1)[0])
}

// TestUDP_BindConflict 测试端口占用返回 ErrBind
func TestUDP_BindConflict(t *testing.T) {
	loop := startLoop(t)

	a := NewUDP(loopbackConfig(), loop)
	require.NoError(t, a.Start())
	defer func() { _ = a.Close() }()

	cfg := loopbackConfig()
	cfg.Port = a.LocalAddr().Port
	b := NewUDP(cfg, loop)
	err := b.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBind)

	// 第一个传输释放后端口可复用
	require.NoError(t, a.Close())
	require.NoError(t, b.Start())
	require.NoError(t, b.Close())

	t.Log("✅ ErrBind 行为正确")
}

// TestUDP_SendBeforeStart 测试未启动时发送
func TestUDP_SendBeforeStart(t *testing.T) {
	loop := startLoop(t)
	a := NewUDP(loopbackConfig(), loop)
	err := a.Send(types.Address{}, []byte("x"))
	assert.ErrorIs(t, err, ErrNotStarted)
}

// TestTCP_RoundTrip 测试 TCP 分帧收发
func TestTCP_RoundTrip(t *testing.T) {
	loop := startLoop(t)

	a := NewTCP(loopbackConfig(), loop)
	b := NewTCP(loopbackConfig(), loop)

	colA, colB := newCollector(), newCollector()
	a.SetMessageSink(colA.sink)
	b.SetMessageSink(colB.sink)

	require.NoError(t, a.Start())
	require.NoError(t, b.Start())
	defer func() { _ = a.Close(); _ = b.Close() }()

	// a 拨号发送（发起方路径）
	require.NoError(t, a.Send(b.LocalAddr(), []byte("first frame")))
	require.NoError(t, a.Send(b.LocalAddr(), []byte("second frame")))

	got := colB.wait(t, 2)
	assert.Equal(t, []byte("first frame"), got[0])
	assert.Equal(t, []byte("second frame"), got[1])
}

// TestTCP_BindConflict 测试 TCP 端口占用返回 ErrBind
func TestTCP_BindConflict(t *testing.T) {
	loop := startLoop(t)

	a := NewTCP(loopbackConfig(), loop)
	require.NoError(t, a.Start())
	defer func() { _ = a.Close() }()

	cfg := loopbackConfig()
	cfg.Port = a.LocalAddr().Port
	b := NewTCP(cfg, loop)
	assert.ErrorIs(t, b.Start(), ErrBind)
}

// TestTCP_QueueOverflowReported 测试出站队列溢出经错误回调上报
func TestTCP_QueueOverflowReported(t *testing.T) {
	loop := startLoop(t)

	// 裸监听器：接受连接但永不读取，迫使发送端 socket 缓冲填满
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	var held []net.Conn
	defer func() {
		for _, c := range held {
			_ = c.Close()
		}
	}()
	accepted := make(chan net.Conn, 4)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- c
		}
	}()

	cfg := loopbackConfig()
	cfg.MaxPendingPackets = 1
	a := NewTCP(cfg, loop)

	var mu sync.Mutex
	var reported []error
	a.SetErrorHandler(func(_ types.Address, err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	})

	require.NoError(t, a.Start())
	defer func() { _ = a.Close() }()

	dest, err := types.AddressFromNetAddr(ln.Addr())
	require.NoError(t, err)

	// 大量快速发送必然溢出容量为 1 的队列
	payload := make([]byte, 32*1024)
	for i := 0; i < 64; i++ {
		require.NoError(t, a.Send(dest, payload))
	}

	select {
	case c := <-accepted:
		held = append(held, c)
	case <-time.After(2 * time.Second):
		t.Fatal("对端未收到连接")
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, err := range reported {
			if errors.Is(err, ErrSendQueueFull) {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "队列溢出未上报")
}

// TestTCP_ConnectionLimit 测试超限连接被静默丢弃
func TestTCP_ConnectionLimit(t *testing.T) {
	loop := startLoop(t)

	cfg := loopbackConfig()
	cfg.MaxActiveConnections = 2
	srv := NewTCP(cfg, loop)
	srv.SetMessageSink(func(types.Address, []byte) {})
	require.NoError(t, srv.Start())
	defer func() { _ = srv.Close() }()

	var clients []*TCP
	for i := 0; i < 4; i++ {
		c := NewTCP(loopbackConfig(), loop)
		require.NoError(t, c.Start())
		clients = append(clients, c)
		require.NoError(t, c.Send(srv.LocalAddr(), []byte("hello")))
	}
	defer func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}()

	// 服务端恰好保留 2 条连接，其余被静默丢弃
	assert.Eventually(t, func() bool {
		return srv.ActiveConnections() == 2
	}, 2*time.Second, 20*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 2, srv.ActiveConnections())
}
