package transport

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/multiformats/go-varint"

	"github.com/dep2p/go-secmsg/pkg/lib/wire"
	"github.com/dep2p/go-secmsg/pkg/types"
)

// conn TCP 传输的一条活动连接
//
// 出站走有界队列（MaxPendingPackets），由独立的写 goroutine 消费；
// 入站按 uvarint 长度前缀分帧。
type conn struct {
	transport *TCP
	raw       net.Conn
	peer      types.Address

	out  chan []byte
	done chan struct{}

	closeOnce sync.Once
}

func newConn(t *TCP, raw net.Conn, peer types.Address) *conn {
	return &conn{
		transport: t,
		raw:       raw,
		peer:      peer,
		out:       make(chan []byte, t.cfg.MaxPendingPackets),
		done:      make(chan struct{}),
	}
}

// start 启动读写循环
func (c *conn) start() {
	c.transport.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()
}

// enqueue 将报文放入出站队列
//
// 队列满返回 ErrSendQueueFull，由调用方经错误回调上报。
func (c *conn) enqueue(data []byte) error {
	select {
	case <-c.done:
		return fmt.Errorf("tcp: connection to %s closed", c.peer)
	default:
	}

	select {
	case c.out <- data:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrSendQueueFull, c.peer)
	}
}

// close 关闭连接并从连接表摘除
func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.raw.Close()
		c.transport.removeConn(c.peer, c)
	})
}

// readLoop 按帧读取并经事件循环移交
func (c *conn) readLoop() {
	defer c.transport.wg.Done()
	defer c.close()

	reader := bufio.NewReader(c.raw)
	for {
		size, err := varint.ReadUvarint(reader)
		if err != nil {
			if err != io.EOF {
				tcpLogger.Debug("TCP 读帧失败", "peer", c.peer.String(), "error", err)
			}
			return
		}
		if size > wire.MaxPacketSize {
			tcpLogger.Warn("TCP 帧超限，断开连接", "peer", c.peer.String(), "size", size)
			return
		}

		data := make([]byte, size)
		if _, err := io.ReadFull(reader, data); err != nil {
			tcpLogger.Debug("TCP 读包体失败", "peer", c.peer.String(), "error", err)
			return
		}

		c.transport.deliver(c.peer, data)
	}
}

// writeLoop 消费出站队列
func (c *conn) writeLoop() {
	defer c.transport.wg.Done()

	header := make([]byte, varint.MaxLenUvarint63)
	for {
		select {
		case data := <-c.out:
			n := varint.PutUvarint(header, uint64(len(data)))
			if _, err := c.raw.Write(header[:n]); err != nil {
				c.transport.reportError(c.peer, err)
				c.close()
				return
			}
			if _, err := c.raw.Write(data); err != nil {
				c.transport.reportError(c.peer, err)
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}
