// Package counter 实现每会话的消息计数器管理
//
// 出站方向维护严格递增的 32 位计数器，回绕视为致命条件（需要重建会话）。
// 入站方向维护高水位线加滑动位图窗口：窗口内容忍乱序，窗口之下和重复值
// 一律拒绝，超前过多视为计数器失步信号。
//
// 核心不变量：同一会话上被接受的入站消息不会出现重复的计数器值。
package counter
