// Package eventloop 实现单线程协作式事件循环
//
// 整个进程只有一个循环 goroutine，所有入站报文、定时器到期和协议处理
// 回调都在该 goroutine 上执行。会话表和交换分发器的状态只在循环线程上
// 变更，因此不需要加锁。
//
// 跨线程提交（例如来自网络 I/O goroutine）必须通过 Post 交给循环线程，
// 循环内的任务不得阻塞或执行长耗时工作，否则会拖住共享同一循环的所有
// 会话和交换。
package eventloop
