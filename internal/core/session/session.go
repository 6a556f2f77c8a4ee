package session

import (
	"crypto/cipher"

	"github.com/dep2p/go-secmsg/internal/core/counter"
	"github.com/dep2p/go-secmsg/pkg/types"
)

// Key 会话表键
//
// 不变量：任一时刻每个 (partition, peer) 至多一条活动会话。
type Key struct {
	Partition types.PartitionID
	PeerNode  types.NodeID
}

// Session 到一个对端的安全通道
//
// 由 Manager 独占持有：密钥材料和计数器状态只在事件循环线程上被触碰。
type Session struct {
	partition types.PartitionID
	localNode types.NodeID
	peerNode  types.NodeID
	role      types.SessionRole

	aead     cipher.AEAD
	counters *counter.PeerState

	// peerAddr 最近一次见到的对端地址；UDP 模式下响应发往这里
	peerAddr types.Address
}

// Partition 返回会话所属分区
func (s *Session) Partition() types.PartitionID {
	return s.partition
}

// LocalNode 返回本地节点 ID
func (s *Session) LocalNode() types.NodeID {
	return s.localNode
}

// PeerNode 返回对端节点 ID
func (s *Session) PeerNode() types.NodeID {
	return s.peerNode
}

// Role 返回会话角色
func (s *Session) Role() types.SessionRole {
	return s.role
}

// Key 返回会话表键
func (s *Session) Key() Key {
	return Key{Partition: s.partition, PeerNode: s.peerNode}
}

// PeerAddress 返回当前已知的对端地址
func (s *Session) PeerAddress() types.Address {
	return s.peerAddr
}

// setPeerAddress 更新对端地址（每个认证通过的入站报文都会刷新）
func (s *Session) setPeerAddress(addr types.Address) {
	s.peerAddr = addr
}
