package admin

import "errors"

// 错误定义
var (
	// ErrPartitionNotFound 分区未登记
	ErrPartitionNotFound = errors.New("admin: partition not found")

	// ErrDuplicatePartition 分区已登记
	ErrDuplicatePartition = errors.New("admin: partition already assigned")

	// ErrUndefinedNode 本地节点 ID 未定义
	ErrUndefinedNode = errors.New("admin: undefined local node id")
)
