// Package secmsg 提供点对点安全消息响应器
//
// SecMsg 是一个面向受限设备场景的安全消息端点：在不可靠的
// UDP（或面向连接的 TCP）之上，用预共享配网密钥对消息做
// AEAD 加密与重放防护，并以请求/响应交换为单位分发给协议
// 响应器。内置 Echo 协议与配对前的发现通告信道。
//
// # 核心概念
//
// SecMsg 围绕四个核心概念构建：
//
//   - Session: 与单个对端的安全会话（密钥、计数器、对端地址）
//   - Exchange: 一次请求/响应交换，带超时
//   - Responder: 协议响应器，按协议 ID 注册
//   - Announcement: 配对前的明文发现通告
//
// # 快速开始
//
//	import "github.com/dep2p/go-secmsg"
//
//	// 1. 创建并启动响应器
//	r, err := secmsg.New(
//	    secmsg.WithListenPort(5540),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := r.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Stop(context.Background())
//
// 启动后，响应器对配网对端的 Echo 请求原样回显，
// 并在发现端口上监听实例名通告。
//
// # 并发模型
//
// 全部协议状态归单个事件循环 goroutine 所有；传输层把入站
// 报文投递到循环上，公共 API 通过投递闭包与循环交互。
package secmsg
