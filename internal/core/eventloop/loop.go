package eventloop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-secmsg/pkg/lib/log"
)

var logger = log.Logger("secmsg/eventloop")

// DefaultQueueDepth 默认任务队列深度
const DefaultQueueDepth = 1024

// Loop 单线程事件循环
//
// Post 是唯一的跨线程入口；其余方法只应在启动/停止路径上调用。
type Loop struct {
	clk   clock.Clock
	tasks chan func()

	running  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New 创建事件循环
//
// clk 可注入 mock（测试定时器行为时），生产路径传 clock.New()。
func New(clk clock.Clock) *Loop {
	if clk == nil {
		clk = clock.New()
	}
	return &Loop{
		clk:   clk,
		tasks: make(chan func(), DefaultQueueDepth),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Clock 返回循环使用的时钟
func (l *Loop) Clock() clock.Clock {
	return l.clk
}

// Post 将任务提交到循环线程执行
//
// 非阻塞：队列满时返回 ErrQueueFull，由调用方决定丢弃策略。
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.stop:
		return ErrLoopStopped
	default:
	}

	select {
	case l.tasks <- fn:
		return nil
	default:
		return ErrQueueFull
	}
}

// AfterFunc 注册在循环线程上触发的定时器
//
// 返回的 Timer 可用于取消；到期回调经由 Post 转到循环线程，
// 循环已停止时回调被静默丢弃。
func (l *Loop) AfterFunc(d time.Duration, fn func()) *clock.Timer {
	return l.clk.AfterFunc(d, func() {
		if err := l.Post(fn); err != nil {
			logger.Debug("定时器回调丢弃", "error", err)
		}
	})
}

// Run 运行事件循环，直到 Stop 被调用
//
// 收到停止信号后先排空已入队的任务再返回，保证确定性的收尾。
func (l *Loop) Run() error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(l.done)

	logger.Debug("事件循环启动")
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.stop:
			for {
				select {
				case fn := <-l.tasks:
					fn()
				default:
					logger.Debug("事件循环退出")
					return nil
				}
			}
		}
	}
}

// Stop 停止事件循环并等待其退出
func (l *Loop) Stop(ctx context.Context) error {
	l.stopOnce.Do(func() {
		close(l.stop)
	})

	if !l.running.Load() {
		return nil
	}
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
