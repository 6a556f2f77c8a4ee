package admin

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-secmsg/config"
	"github.com/dep2p/go-secmsg/pkg/types"
)

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("admin",
		fx.Provide(ProvideTable),
	)
}

// ProvideTable 创建分区表并登记本地节点
func ProvideTable(cfg *config.Config) (*Table, error) {
	t := NewTable()
	if _, err := t.Assign(
		types.PartitionID(cfg.Node.PartitionID),
		types.NodeID(cfg.Node.NodeID),
	); err != nil {
		return nil, err
	}
	return t, nil
}
