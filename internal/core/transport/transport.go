package transport

import (
	"github.com/dep2p/go-secmsg/pkg/types"
)

// RawSink 入站报文回调
//
// 在事件循环线程上调用，实现方不得阻塞。data 归回调所有。
type RawSink func(src types.Address, data []byte)

// ErrorHandler 异步投递失败回调
//
// 在产生错误的 goroutine 上调用，实现方必须线程安全且不得阻塞。
type ErrorHandler func(dest types.Address, err error)

// Manager 传输管理器
//
// 实现方独占其 socket/连接资源，Close 后资源确定性释放。
type Manager interface {
	// Start 绑定本地端点并开始收包，地址不可用时返回 ErrBind
	Start() error

	// LocalAddr 返回实际绑定的本地地址（端口 0 时为实际分配端口）
	LocalAddr() types.Address

	// Send 将字节入队投递；只对非法参数或已关闭返回错误，
	// 投递失败经 ErrorHandler 异步上报
	Send(dest types.Address, data []byte) error

	// SetMessageSink 安装入站回调（必须在 Start 之前）
	SetMessageSink(sink RawSink)

	// SetErrorHandler 安装投递失败回调（必须在 Start 之前）
	SetErrorHandler(h ErrorHandler)

	// Close 关闭传输并释放全部资源，幂等
	Close() error
}

// Config 单个传输端点的监听配置
type Config struct {
	// ListenAddress 监听 IP
	ListenAddress string

	// Port 监听端口
	Port uint16

	// MaxActiveConnections 面向连接模式的最大并发连接数（无连接模式忽略）
	MaxActiveConnections int

	// MaxPendingPackets 面向连接模式每连接出站队列上限（无连接模式忽略）
	MaxPendingPackets int
}
