package secmsg

import "errors"

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 响应器未启动
	ErrNotStarted = errors.New("responder not started")

	// ErrAlreadyStarted 响应器已启动
	ErrAlreadyStarted = errors.New("responder already started")

	// ErrResponderClosed 响应器已关闭
	ErrResponderClosed = errors.New("responder closed")

	// ────────────────────────────────────────────────────────────────────────
	// 功能开关错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrEchoDisabled Echo 协议未启用
	ErrEchoDisabled = errors.New("echo protocol disabled")

	// ErrDiscoveryDisabled 发现监听未启用
	ErrDiscoveryDisabled = errors.New("discovery disabled")
)
