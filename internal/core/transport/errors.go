package transport

import "errors"

// 错误定义
var (
	// ErrBind 监听地址/端口不可用
	ErrBind = errors.New("transport: bind failed")

	// ErrNotStarted 传输尚未启动
	ErrNotStarted = errors.New("transport: not started")

	// ErrClosed 传输已关闭
	ErrClosed = errors.New("transport: closed")

	// ErrInvalidAddress 非法对端地址
	ErrInvalidAddress = errors.New("transport: invalid peer address")

	// ErrSendQueueFull 出站队列已满（经错误回调上报）
	ErrSendQueueFull = errors.New("transport: send queue full")

	// ErrPacketTooLarge 报文超过单帧上限
	ErrPacketTooLarge = errors.New("transport: packet exceeds frame limit")
)
