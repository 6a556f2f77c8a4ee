// Package transport 实现传输层
//
// 传输管理器拥有底层网络资源（socket、连接），对上层暴露不透明字节
// 缓冲的收发。两种实现：
//
//   - UDP: 无连接传输（默认）
//   - TCP: 面向连接传输，带并发连接上限和每连接待发队列上限
//
// 入站报文经事件循环转交给 RawSink，回调在循环线程上执行且不得阻塞。
// 投递失败属于异步事件，通过 ErrorHandler 上报，Send 本身不返回
// 投递错误。
package transport
