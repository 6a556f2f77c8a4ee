package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-secmsg/pkg/types"
)

// TestTable_Assign 测试分区登记
func TestTable_Assign(t *testing.T) {
	table := NewTable()

	entry, err := table.Assign(types.DefaultPartitionID, types.TestDeviceNodeID)
	require.NoError(t, err)
	assert.Equal(t, types.TestDeviceNodeID, entry.LocalNode)
	assert.Equal(t, 1, table.Size())

	// 重复登记
	_, err = table.Assign(types.DefaultPartitionID, types.TestDeviceNodeID)
	assert.ErrorIs(t, err, ErrDuplicatePartition)

	// 未定义节点
	_, err = table.Assign(1, types.UndefinedNodeID)
	assert.ErrorIs(t, err, ErrUndefinedNode)
}

// TestTable_Get 测试分区查找
func TestTable_Get(t *testing.T) {
	table := NewTable()
	_, err := table.Get(types.DefaultPartitionID)
	assert.ErrorIs(t, err, ErrPartitionNotFound)

	_, err = table.Assign(types.DefaultPartitionID, types.TestDeviceNodeID)
	require.NoError(t, err)

	entry, err := table.Get(types.DefaultPartitionID)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultPartitionID, entry.Partition)
}
