package discovery

import "errors"

var (
	// ErrInstanceNameTooLong 实例名超出单个报文可携带的长度
	ErrInstanceNameTooLong = errors.New("discovery: instance name too long")

	// ErrInvalidCacheSize 去重缓存容量非法
	ErrInvalidCacheSize = errors.New("discovery: dedup cache size must be positive")
)
