package exchange

import (
	"time"

	"github.com/dep2p/go-secmsg/internal/core/eventloop"
	"github.com/dep2p/go-secmsg/internal/core/metrics"
	"github.com/dep2p/go-secmsg/internal/core/session"
	"github.com/dep2p/go-secmsg/pkg/lib/log"
	"github.com/dep2p/go-secmsg/pkg/lib/wire"
	"github.com/dep2p/go-secmsg/pkg/types"
)

var logger = log.Logger("secmsg/exchange")

// Context 交给响应器的交换上下文
type Context struct {
	sess       *session.Session
	exchangeID types.ExchangeID
	protocol   types.ProtocolID
}

// Session 交换所在的会话
func (c *Context) Session() *session.Session {
	return c.sess
}

// ExchangeID 交换 ID
func (c *Context) ExchangeID() types.ExchangeID {
	return c.exchangeID
}

// Protocol 交换绑定的协议
func (c *Context) Protocol() types.ProtocolID {
	return c.protocol
}

// Responder 协议响应器
//
// 返回非 nil 响应时，分发器以相同交换 ID、翻转发起方标志回发；
// 返回错误时该交换被丢弃，不向对端发送任何内容。
// 在事件循环线程上调用。
type Responder interface {
	OnExchangeMessage(ctx *Context, payload []byte) ([]byte, error)
}

// Dispatcher 交换分发器
//
// 实现 session.MessageDelegate：解密后的消息按
// (会话, 交换 ID, 发起方标志) 匹配到打开的交换，否则按协议 ID
// 路由到注册的响应器。状态只在事件循环线程上变更。
type Dispatcher struct {
	sessions *session.Manager
	loop     *eventloop.Loop
	rec      *metrics.Recorder
	timeout  time.Duration

	responders map[types.ProtocolID]Responder
	open       map[exchangeKey]*Exchange
	nextID     types.ExchangeID
}

var _ session.MessageDelegate = (*Dispatcher)(nil)

// NewDispatcher 创建分发器
func NewDispatcher(sessions *session.Manager, loop *eventloop.Loop, rec *metrics.Recorder, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		sessions:   sessions,
		loop:       loop,
		rec:        rec,
		timeout:    timeout,
		responders: make(map[types.ProtocolID]Responder),
		open:       make(map[exchangeKey]*Exchange),
		nextID:     1,
	}
}

// RegisterResponder 注册协议响应器
func (d *Dispatcher) RegisterResponder(protocol types.ProtocolID, r Responder) error {
	if _, ok := d.responders[protocol]; ok {
		return ErrAlreadyRegistered
	}
	d.responders[protocol] = r
	logger.Debug("已注册协议响应器", "protocolID", protocol)
	return nil
}

// UnregisterResponder 注销协议响应器
func (d *Dispatcher) UnregisterResponder(protocol types.ProtocolID) error {
	if _, ok := d.responders[protocol]; !ok {
		return ErrNotRegistered
	}
	delete(d.responders, protocol)
	return nil
}

// NewExchange 打开一个发起方交换
//
// onComplete 在收到响应或超时后恰好被调用一次。
func (d *Dispatcher) NewExchange(sess *session.Session, protocol types.ProtocolID, onComplete CompletionFunc) (*Exchange, error) {
	id, err := d.allocateID(sess)
	if err != nil {
		return nil, err
	}
	ex := &Exchange{
		dispatcher: d,
		sess:       sess,
		id:         id,
		protocol:   protocol,
		initiator:  true,
		state:      StateIdle,
		onComplete: onComplete,
	}
	d.open[exchangeKey{session: sess.Key(), exchangeID: id, initiator: true}] = ex
	d.rec.IncExchangeOpened()
	return ex, nil
}

// OpenCount 当前打开的交换数（诊断用）
func (d *Dispatcher) OpenCount() int {
	return len(d.open)
}

// CloseAll 关闭所有打开的交换（停机时调用）
//
// 等待中的发起方交换以 ErrExchangeClosed 完结。
func (d *Dispatcher) CloseAll() {
	for _, ex := range d.open {
		waiting := ex.state == StateAwaitingResponse
		ex.close()
		if waiting {
			ex.complete(nil, ErrExchangeClosed)
		}
	}
}

// OnSecureMessage 会话层解密后的消息入口
func (d *Dispatcher) OnSecureMessage(sess *session.Session, hdr wire.ExchangeHeader, payload []byte) {
	if !hdr.Initiator {
		// 对端的响应：匹配本端发起的交换
		key := exchangeKey{session: sess.Key(), exchangeID: hdr.ExchangeID, initiator: true}
		ex, ok := d.open[key]
		if !ok || ex.state != StateAwaitingResponse {
			logger.Debug("丢弃无主响应",
				"exchangeID", hdr.ExchangeID,
				"protocolID", hdr.ProtocolID,
				"peer", sess.PeerNode())
			return
		}
		ex.onResponse(payload)
		return
	}

	// 对端发起的请求：按协议路由
	responder, ok := d.responders[hdr.ProtocolID]
	if !ok {
		d.rec.IncDropped(metrics.ReasonUnknownProtocol)
		logger.Warn("丢弃未知协议的请求",
			"error", ErrUnknownProtocol,
			"protocolID", hdr.ProtocolID,
			"exchangeID", hdr.ExchangeID,
			"peer", sess.PeerNode())
		return
	}

	ctx := &Context{sess: sess, exchangeID: hdr.ExchangeID, protocol: hdr.ProtocolID}
	response, err := responder.OnExchangeMessage(ctx, payload)
	if err != nil {
		logger.Warn("响应器处理失败",
			"error", err,
			"protocolID", hdr.ProtocolID,
			"exchangeID", hdr.ExchangeID)
		return
	}
	if response == nil {
		return
	}

	rspHdr := wire.ExchangeHeader{
		Initiator:  false,
		ExchangeID: hdr.ExchangeID,
		ProtocolID: hdr.ProtocolID,
	}
	if err := d.sessions.SendMessage(sess, rspHdr, response); err != nil {
		logger.Warn("发送响应失败",
			"error", err,
			"exchangeID", hdr.ExchangeID,
			"peer", sess.PeerNode())
	}
}

// allocateID 分配未占用的交换 ID
func (d *Dispatcher) allocateID(sess *session.Session) (types.ExchangeID, error) {
	sk := sess.Key()
	for i := 0; i < 1<<16; i++ {
		id := d.nextID
		d.nextID++
		if d.nextID == 0 {
			d.nextID = 1
		}
		if _, ok := d.open[exchangeKey{session: sk, exchangeID: id, initiator: true}]; !ok {
			return id, nil
		}
	}
	return 0, ErrExchangeExists
}
