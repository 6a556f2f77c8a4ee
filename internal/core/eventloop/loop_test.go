package eventloop

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoop_PostRunsOnLoopThread 测试任务在循环线程上执行
func TestLoop_PostRunsOnLoopThread(t *testing.T) {
	loop := New(nil)
	go func() { _ = loop.Run() }()

	ran := make(chan struct{})
	err := loop.Post(func() { close(ran) })
	require.NoError(t, err)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("任务未执行")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, loop.Stop(ctx))

	t.Log("✅ Post 任务执行成功")
}

// TestLoop_StopDrainsPending 测试停止时排空已入队任务
func TestLoop_StopDrainsPending(t *testing.T) {
	loop := New(nil)

	count := 0
	for i := 0; i < 10; i++ {
		require.NoError(t, loop.Post(func() { count++ }))
	}

	// 先发停止信号再运行，Run 应排空已入队任务后退出
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, loop.Stop(ctx))
	require.NoError(t, loop.Run())
	assert.Equal(t, 10, count)

	// 停止后提交被拒绝
	err := loop.Post(func() {})
	assert.ErrorIs(t, err, ErrLoopStopped)
}

// TestLoop_QueueFull 测试队列满时的非阻塞拒绝
func TestLoop_QueueFull(t *testing.T) {
	loop := New(nil)
	// 不运行循环，填满队列
	for i := 0; i < DefaultQueueDepth; i++ {
		require.NoError(t, loop.Post(func() {}))
	}
	err := loop.Post(func() {})
	assert.ErrorIs(t, err, ErrQueueFull)
}

// TestLoop_AfterFunc 测试定时器回调在循环线程触发
func TestLoop_AfterFunc(t *testing.T) {
	mock := clock.NewMock()
	loop := New(mock)
	go func() { _ = loop.Run() }()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = loop.Stop(ctx)
	}()

	fired := make(chan struct{})
	loop.AfterFunc(5*time.Second, func() { close(fired) })

	// 未到期不触发
	mock.Add(4 * time.Second)
	select {
	case <-fired:
		t.Fatal("定时器提前触发")
	case <-time.After(50 * time.Millisecond):
	}

	mock.Add(2 * time.Second)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("定时器未触发")
	}

	t.Log("✅ AfterFunc 定时器触发成功")
}

// TestLoop_RunTwice 测试重复运行被拒绝
func TestLoop_RunTwice(t *testing.T) {
	loop := New(nil)
	go func() { _ = loop.Run() }()

	// 等待第一个 Run 启动
	ready := make(chan struct{})
	require.NoError(t, loop.Post(func() { close(ready) }))
	<-ready

	assert.ErrorIs(t, loop.Run(), ErrAlreadyRunning)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, loop.Stop(ctx))
}
