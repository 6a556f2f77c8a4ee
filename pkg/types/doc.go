// Package types 定义 SecMsg 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 secmsg 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - ids.go     - NodeID, PartitionID, ProtocolID, ExchangeID, SessionRole
//   - address.go - Address 传输层对端地址
package types
