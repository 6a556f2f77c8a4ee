package exchange

import "errors"

var (
	// ErrAlreadyRegistered 协议已有响应器
	ErrAlreadyRegistered = errors.New("exchange: protocol already registered")

	// ErrNotRegistered 协议未注册响应器
	ErrNotRegistered = errors.New("exchange: protocol not registered")

	// ErrUnknownProtocol 入站消息的协议无人认领
	ErrUnknownProtocol = errors.New("exchange: unknown protocol")

	// ErrExchangeTimedOut 发起方等待响应超时
	ErrExchangeTimedOut = errors.New("exchange: response timed out")

	// ErrExchangeClosed 交换已关闭，不能再发送
	ErrExchangeClosed = errors.New("exchange: exchange closed")

	// ErrExchangeExists 交换 ID 冲突
	ErrExchangeExists = errors.New("exchange: exchange id in use")
)
