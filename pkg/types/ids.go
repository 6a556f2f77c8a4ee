package types

import (
	"fmt"
	"strconv"
)

// ============================================================================
//                              NodeID - 节点标识
// ============================================================================

// NodeID 节点唯一标识符
//
// 64 位无符号整数，由配网（pairing）阶段分配，在一个 Partition 内唯一。
// 外部表示为十进制字符串。
type NodeID uint64

// UndefinedNodeID 未定义的节点 ID
const UndefinedNodeID NodeID = 0

// 测试身份（与真实配网模块对接前的固定占位身份）
const (
	// TestDeviceNodeID 测试设备节点 ID（本进程，响应方）
	TestDeviceNodeID NodeID = 12344

	// TestControllerNodeID 测试控制器节点 ID（对端，发起方）
	TestControllerNodeID NodeID = 112233
)

// String 返回 NodeID 的十进制字符串表示
func (id NodeID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// IsDefined 检查 NodeID 是否已定义
func (id NodeID) IsDefined() bool {
	return id != UndefinedNodeID
}

// ============================================================================
//                              PartitionID - 分区标识
// ============================================================================

// PartitionID 逻辑分区（admin/fabric）标识符
//
// 当多个逻辑 fabric 共享一个进程时，用 PartitionID 消除节点 ID 的歧义。
// 本进程默认只使用一个分区。
type PartitionID uint16

// DefaultPartitionID 默认分区 ID
const DefaultPartitionID PartitionID = 0

// String 返回 PartitionID 的字符串表示
func (id PartitionID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ============================================================================
//                              ProtocolID - 协议标识
// ============================================================================

// ProtocolID 协议标识符
//
// 选择由哪个已注册的协议响应器处理一个 Exchange 的载荷。
type ProtocolID uint16

// 内置协议 ID
const (
	// ProtocolSecureChannel 安全通道协议（握手/计数器同步，保留）
	ProtocolSecureChannel ProtocolID = 0x0000

	// ProtocolDiscovery 发现/通告协议（UDC）
	ProtocolDiscovery ProtocolID = 0x0003

	// ProtocolEcho Echo 协议
	ProtocolEcho ProtocolID = 0x0004
)

// String 返回 ProtocolID 的十六进制字符串表示
func (id ProtocolID) String() string {
	return fmt.Sprintf("0x%04X", uint16(id))
}

// ============================================================================
//                              ExchangeID - 交换标识
// ============================================================================

// ExchangeID Exchange 标识符
//
// 在一个 (Session, initiator) 组合内唯一标识一次请求-响应交换。
type ExchangeID uint16

// String 返回 ExchangeID 的字符串表示
func (id ExchangeID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ============================================================================
//                              SessionRole - 会话角色
// ============================================================================

// SessionRole 会话角色
type SessionRole uint8

const (
	// RoleInitiator 会话发起方
	RoleInitiator SessionRole = iota

	// RoleResponder 会话响应方
	RoleResponder
)

// String 返回角色名
func (r SessionRole) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return "unknown"
	}
}
