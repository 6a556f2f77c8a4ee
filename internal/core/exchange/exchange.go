package exchange

import (
	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-secmsg/internal/core/session"
	"github.com/dep2p/go-secmsg/pkg/lib/wire"
	"github.com/dep2p/go-secmsg/pkg/types"
)

// State 交换状态
type State uint8

const (
	// StateIdle 已分配，尚未发送
	StateIdle State = iota
	// StateAwaitingResponse 发起方已发出请求，等待响应
	StateAwaitingResponse
	// StateDispatched 响应方已把请求交给响应器
	StateDispatched
	// StateClosed 终态
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingResponse:
		return "AwaitingResponse"
	case StateDispatched:
		return "Dispatched"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// CompletionFunc 发起方交换的完结回调
//
// 成功时携带响应载荷，超时时 err 为 ErrExchangeTimedOut。
// 恰好被调用一次，在事件循环线程上。
type CompletionFunc func(payload []byte, err error)

// exchangeKey 按 (会话, 交换 ID, 本端是否发起方) 索引打开的交换
type exchangeKey struct {
	session    session.Key
	exchangeID types.ExchangeID
	initiator  bool
}

// Exchange 一次请求/响应交换
//
// 状态只在事件循环线程上变更。
type Exchange struct {
	dispatcher *Dispatcher
	sess       *session.Session
	id         types.ExchangeID
	protocol   types.ProtocolID
	initiator  bool

	state      State
	timer      *clock.Timer
	onComplete CompletionFunc
}

// ID 交换 ID
func (e *Exchange) ID() types.ExchangeID {
	return e.id
}

// Protocol 交换绑定的协议
func (e *Exchange) Protocol() types.ProtocolID {
	return e.protocol
}

// Session 交换所在的会话
func (e *Exchange) Session() *session.Session {
	return e.sess
}

// State 当前状态
func (e *Exchange) State() State {
	return e.state
}

// Send 发起方发出请求并启动响应计时器
//
// 只能在 Idle 状态下调用一次。
func (e *Exchange) Send(payload []byte) error {
	if e.state != StateIdle {
		return ErrExchangeClosed
	}
	hdr := wire.ExchangeHeader{
		Initiator:  true,
		ExchangeID: e.id,
		ProtocolID: e.protocol,
	}
	if err := e.dispatcher.sessions.SendMessage(e.sess, hdr, payload); err != nil {
		e.close()
		return err
	}
	e.state = StateAwaitingResponse
	e.timer = e.dispatcher.loop.AfterFunc(e.dispatcher.timeout, e.onTimeout)
	return nil
}

// onTimeout 响应计时器到期（已投递到循环线程）
func (e *Exchange) onTimeout() {
	if e.state != StateAwaitingResponse {
		// 响应先到，交换已关闭
		return
	}
	e.close()
	e.dispatcher.rec.IncExchangeTimedOut()
	logger.Debug("交换等待响应超时",
		"exchangeID", e.id,
		"protocolID", e.protocol,
		"peer", e.sess.PeerNode())
	e.complete(nil, ErrExchangeTimedOut)
}

// onResponse 收到匹配的响应
func (e *Exchange) onResponse(payload []byte) {
	e.close()
	e.complete(payload, nil)
}

// close 进入终态并从分发器注销
func (e *Exchange) close() {
	if e.state == StateClosed {
		return
	}
	e.state = StateClosed
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	delete(e.dispatcher.open, exchangeKey{
		session:    e.sess.Key(),
		exchangeID: e.id,
		initiator:  e.initiator,
	})
}

func (e *Exchange) complete(payload []byte, err error) {
	if e.onComplete == nil {
		return
	}
	fn := e.onComplete
	e.onComplete = nil
	fn(payload, err)
}
