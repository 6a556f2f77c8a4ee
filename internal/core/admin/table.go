// Package admin 实现分区（admin）表
//
// 当多个逻辑 fabric 共享一个进程时，分区条目把 PartitionID 映射到本地
// 节点身份，用于消除会话键中节点 ID 的歧义。条目在引导阶段写入，
// 之后只读。
package admin

import (
	"github.com/dep2p/go-secmsg/pkg/lib/log"
	"github.com/dep2p/go-secmsg/pkg/types"
)

var logger = log.Logger("secmsg/admin")

// Entry 分区条目
type Entry struct {
	// Partition 分区 ID
	Partition types.PartitionID

	// LocalNode 该分区内的本地节点身份
	LocalNode types.NodeID
}

// Table 分区表
//
// 只在引导阶段（单线程）写入，运行期只读，因此不加锁。
type Table struct {
	entries map[types.PartitionID]*Entry
}

// NewTable 创建空分区表
func NewTable() *Table {
	return &Table{
		entries: make(map[types.PartitionID]*Entry),
	}
}

// Assign 在引导阶段登记一个分区
func (t *Table) Assign(partition types.PartitionID, localNode types.NodeID) (*Entry, error) {
	if !localNode.IsDefined() {
		return nil, ErrUndefinedNode
	}
	if _, exists := t.entries[partition]; exists {
		return nil, ErrDuplicatePartition
	}

	entry := &Entry{Partition: partition, LocalNode: localNode}
	t.entries[partition] = entry
	logger.Info("分区已登记", "partition", partition, "localNode", localNode)
	return entry, nil
}

// Get 查找分区条目
func (t *Table) Get(partition types.PartitionID) (*Entry, error) {
	entry, ok := t.entries[partition]
	if !ok {
		return nil, ErrPartitionNotFound
	}
	return entry, nil
}

// Size 返回已登记的分区数
func (t *Table) Size() int {
	return len(t.entries)
}
