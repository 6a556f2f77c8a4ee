package counter

import "errors"

// 错误定义
var (
	// ErrReplayRejected 计数器重放（重复或低于窗口下界）
	ErrReplayRejected = errors.New("counter: replayed message counter rejected")

	// ErrCounterDesync 计数器失步（超前过多，需要重新同步）
	ErrCounterDesync = errors.New("counter: message counter out of sync")

	// ErrCounterExhausted 出站计数器耗尽（会话必须重建）
	ErrCounterExhausted = errors.New("counter: outbound message counter exhausted")

	// ErrInvalidWindowSize 非法窗口大小
	ErrInvalidWindowSize = errors.New("counter: window size must be in [1, 64]")
)
