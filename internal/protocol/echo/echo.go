// Package echo 实现 Echo 协议
//
// 响应方原样返回请求载荷，发起方发出载荷并等待回显。
// 是安全消息管线最小的端到端练习协议。
package echo

import (
	"context"

	"github.com/dep2p/go-secmsg/internal/core/exchange"
	"github.com/dep2p/go-secmsg/internal/core/metrics"
	"github.com/dep2p/go-secmsg/internal/core/session"
	"github.com/dep2p/go-secmsg/pkg/lib/log"
	"github.com/dep2p/go-secmsg/pkg/types"
)

var logger = log.Logger("secmsg/echo")

// RequestReceivedFunc 请求观察钩子
//
// 载荷只读，不得修改或在回调外继续持有。
type RequestReceivedFunc func(payload []byte)

// Server Echo 响应器
type Server struct {
	rec *metrics.Recorder

	onRequest RequestReceivedFunc
}

var _ exchange.Responder = (*Server)(nil)

// NewServer 创建 Echo 响应器
func NewServer(rec *metrics.Recorder) *Server {
	return &Server{rec: rec}
}

// SetRequestReceived 安装请求观察钩子（引导阶段调用一次）
func (s *Server) SetRequestReceived(fn RequestReceivedFunc) {
	s.onRequest = fn
}

// OnExchangeMessage 原样回显请求载荷
func (s *Server) OnExchangeMessage(ctx *exchange.Context, payload []byte) ([]byte, error) {
	s.rec.IncEchoRequest()
	logger.Debug("收到 Echo 请求",
		"peer", ctx.Session().PeerNode(),
		"exchangeID", ctx.ExchangeID(),
		"size", len(payload))
	if s.onRequest != nil {
		s.onRequest(payload)
	}
	return payload, nil
}

// Client Echo 发起方
//
// 每次 Send 打开一个新交换，等待回显或超时。
type Client struct {
	dispatcher *exchange.Dispatcher
	loop       poster
}

// poster 把闭包投递到循环线程
type poster interface {
	Post(fn func()) error
}

// NewClient 创建 Echo 发起方
func NewClient(dispatcher *exchange.Dispatcher, loop poster) *Client {
	return &Client{dispatcher: dispatcher, loop: loop}
}

// Send 发送载荷并等待回显
//
// 可在任意 goroutine 上调用；超时由交换层计时器决定，
// ctx 只用于调用方自己的提前放弃。
func (c *Client) Send(ctx context.Context, sess *session.Session, payload []byte) ([]byte, error) {
	type result struct {
		payload []byte
		err     error
	}
	resultCh := make(chan result, 1)

	if err := c.loop.Post(func() {
		ex, err := c.dispatcher.NewExchange(sess, types.ProtocolEcho, func(rsp []byte, cerr error) {
			resultCh <- result{payload: rsp, err: cerr}
		})
		if err != nil {
			resultCh <- result{err: err}
			return
		}
		if err := ex.Send(payload); err != nil {
			resultCh <- result{err: err}
		}
	}); err != nil {
		return nil, err
	}

	select {
	case r := <-resultCh:
		return r.payload, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
