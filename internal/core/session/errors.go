package session

import "errors"

// 错误定义
var (
	// ErrDuplicateSession 该 (partition, peer) 已存在活动会话
	ErrDuplicateSession = errors.New("session: duplicate session for partition/peer")

	// ErrSessionNotFound 会话不存在
	ErrSessionNotFound = errors.New("session: session not found")

	// ErrAuthenticationFailure 解密/认证失败（篡改或密钥不匹配）
	ErrAuthenticationFailure = errors.New("session: message authentication failure")

	// ErrEmptySecret 配网密钥为空
	ErrEmptySecret = errors.New("session: empty pairing secret")

	// ErrPeerAddressUnknown 尚不知道对端地址
	ErrPeerAddressUnknown = errors.New("session: peer address unknown")

	// ErrNoDelegate 消息代理未安装
	ErrNoDelegate = errors.New("session: message delegate not set")
)
