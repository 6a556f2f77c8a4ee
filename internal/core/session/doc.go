// Package session 实现安全会话表
//
// 会话按 (PartitionID, PeerNodeID) 键控，由外部协商好的配网密钥派生
// 对称密钥材料（握手本身不在本进程范围内）。会话管理器同时是入站
// 管线的头部：传输层原始报文在这里完成包头解码、分区校验、会话查
// 找、计数器校验和解密，然后交给消息代理（交换分发器）。
//
// 稳态下的畸形/伪造报文一律丢弃并记录，绝不中断进程或影响其他会话。
// 唯一需要升级处理的稳态条件是出站计数器耗尽：继续发送会悄悄破坏
// 防重放不变量，必须重建会话。
package session
