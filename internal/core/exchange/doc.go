// Package exchange 实现请求/响应交换的分发
//
// 分发器是会话层解密后消息的唯一出口：响应按 (会话, 交换 ID)
// 匹配到本端发起的交换，请求按协议 ID 路由到注册的响应器。
// 发起方交换带响应计时器，超时恰好完结一次。
package exchange
