package eventloop

import "errors"

// 错误定义
var (
	// ErrLoopStopped 循环已停止
	ErrLoopStopped = errors.New("eventloop: loop stopped")

	// ErrQueueFull 任务队列已满
	ErrQueueFull = errors.New("eventloop: task queue full")

	// ErrAlreadyRunning 循环已在运行
	ErrAlreadyRunning = errors.New("eventloop: loop already running")
)
