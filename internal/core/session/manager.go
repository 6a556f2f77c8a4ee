package session

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-secmsg/internal/core/admin"
	"github.com/dep2p/go-secmsg/internal/core/counter"
	"github.com/dep2p/go-secmsg/internal/core/metrics"
	"github.com/dep2p/go-secmsg/internal/core/transport"
	"github.com/dep2p/go-secmsg/pkg/lib/log"
	"github.com/dep2p/go-secmsg/pkg/lib/wire"
	"github.com/dep2p/go-secmsg/pkg/types"
)

var logger = log.Logger("secmsg/session")

// MessageDelegate 解密后消息的去向
//
// 由交换分发器实现；在事件循环线程上调用。
type MessageDelegate interface {
	OnSecureMessage(sess *Session, hdr wire.ExchangeHeader, payload []byte)
}

// Manager 会话表与安全消息管线
//
// 状态只在事件循环线程上变更（InstallPairing 在引导阶段、
// OnRawMessage/SendMessage 在循环线程上），不加锁。
type Manager struct {
	admins    *admin.Table
	counters  *counter.Manager
	transport transport.Manager
	rec       *metrics.Recorder

	delegate MessageDelegate
	sessions map[Key]*Session

	// onCounterExhausted 出站计数器耗尽的升级钩子（会话必须重建）
	onCounterExhausted func(*Session)
}

// NewManager 创建会话管理器
func NewManager(admins *admin.Table, counters *counter.Manager, tr transport.Manager, rec *metrics.Recorder) *Manager {
	return &Manager{
		admins:    admins,
		counters:  counters,
		transport: tr,
		rec:       rec,
		sessions:  make(map[Key]*Session),
	}
}

// SetMessageDelegate 安装消息代理（引导阶段调用一次）
func (m *Manager) SetMessageDelegate(d MessageDelegate) {
	m.delegate = d
}

// SetCounterExhaustedHook 安装计数器耗尽升级钩子
func (m *Manager) SetCounterExhaustedHook(fn func(*Session)) {
	m.onCounterExhausted = fn
}

// InstallPairing 用外部协商的配网密钥登记一条会话
//
// 这是真实配对/握手模块的接缝。peerAddr 可以为零值：UDP 响应方
// 在第一个认证通过的入站报文到达时学到对端地址。
func (m *Manager) InstallPairing(partition types.PartitionID, peerNode types.NodeID,
	secret []byte, role types.SessionRole, peerAddr types.Address) (*Session, error) {

	entry, err := m.admins.Get(partition)
	if err != nil {
		return nil, fmt.Errorf("session: install pairing: %w", err)
	}

	key := Key{Partition: partition, PeerNode: peerNode}
	if _, exists := m.sessions[key]; exists {
		return nil, ErrDuplicateSession
	}

	aead, err := deriveAEAD(secret)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		partition: partition,
		localNode: entry.LocalNode,
		peerNode:  peerNode,
		role:      role,
		aead:      aead,
		counters:  m.counters.NewPeerState(),
		peerAddr:  peerAddr,
	}
	m.sessions[key] = sess

	logger.Info("会话已安装",
		"partition", partition, "peer", peerNode, "role", role.String())
	return sess, nil
}

// Lookup 查找会话
func (m *Manager) Lookup(partition types.PartitionID, peerNode types.NodeID) (*Session, error) {
	sess, ok := m.sessions[Key{Partition: partition, PeerNode: peerNode}]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Remove 拆除一条会话
func (m *Manager) Remove(partition types.PartitionID, peerNode types.NodeID) error {
	key := Key{Partition: partition, PeerNode: peerNode}
	if _, ok := m.sessions[key]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, key)
	logger.Info("会话已拆除", "partition", partition, "peer", peerNode)
	return nil
}

// Clear 拆除全部会话（进程关闭路径）
func (m *Manager) Clear() {
	for key := range m.sessions {
		delete(m.sessions, key)
	}
}

// Count 返回活动会话数（仅诊断用）
func (m *Manager) Count() int {
	return len(m.sessions)
}

// ============================================================================
//                              出站路径
// ============================================================================

// SendMessage 为载荷盖上出站计数器、加密并交给传输层
//
// 在事件循环线程上调用。
func (m *Manager) SendMessage(sess *Session, hdr wire.ExchangeHeader, payload []byte) error {
	dest := sess.PeerAddress()
	if !dest.IsValid() {
		return ErrPeerAddressUnknown
	}

	c, err := sess.counters.NextOutbound()
	if err != nil {
		// 计数器耗尽必须升级：继续发送会破坏防重放不变量
		logger.Error("出站计数器耗尽，会话必须重建",
			"partition", sess.partition, "peer", sess.peerNode)
		if m.onCounterExhausted != nil {
			m.onCounterExhausted(sess)
		}
		return err
	}

	pktHdr := wire.PacketHeader{
		Flags:     wire.FlagEncrypted,
		Partition: sess.partition,
		Counter:   c,
		Source:    sess.localNode,
		Dest:      sess.peerNode,
	}
	body := hdr.Encode(payload)
	packet := append(pktHdr.Encode(), seal(sess.aead, &pktHdr, body)...)

	m.rec.IncOutbound()
	return m.transport.Send(dest, packet)
}

// ============================================================================
//                              入站路径
// ============================================================================

// OnRawMessage 主传输的入站回调（transport.RawSink）
//
// 在事件循环线程上调用。稳态错误一律丢包并记录，绝不向上传播。
func (m *Manager) OnRawMessage(src types.Address, data []byte) {
	m.rec.IncInbound()

	hdr, ciphertext, err := wire.DecodePacketHeader(data)
	if err != nil {
		m.drop(metrics.ReasonMalformed, src, err)
		return
	}

	entry, err := m.admins.Get(hdr.Partition)
	if err != nil {
		m.drop(metrics.ReasonUnknownPartition, src, err)
		return
	}
	if hdr.Dest.IsDefined() && hdr.Dest != entry.LocalNode {
		m.drop(metrics.ReasonNoSession, src,
			fmt.Errorf("session: packet for node %s, local is %s", hdr.Dest, entry.LocalNode))
		return
	}

	sess, err := m.Lookup(hdr.Partition, hdr.Source)
	if err != nil {
		m.drop(metrics.ReasonNoSession, src, err)
		return
	}

	if !hdr.IsEncrypted() {
		// 主传输不接受明文
		m.drop(metrics.ReasonAuthFailure, src, ErrAuthenticationFailure)
		return
	}

	if err := sess.counters.ValidateInbound(hdr.Counter); err != nil {
		reason := metrics.ReasonReplay
		if errors.Is(err, counter.ErrCounterDesync) {
			reason = metrics.ReasonCounterDesync
			logger.Warn("入站计数器失步", "peer", sess.peerNode, "counter", hdr.Counter)
		}
		m.drop(reason, src, err)
		return
	}

	body, err := open(sess.aead, &hdr, ciphertext)
	if err != nil {
		m.drop(metrics.ReasonAuthFailure, src, err)
		return
	}

	// 解密成功才提交计数器，伪造报文推不动窗口
	sess.counters.CommitInbound(hdr.Counter)
	sess.setPeerAddress(src)

	exHdr, payload, err := wire.DecodeExchangeHeader(body)
	if err != nil {
		m.drop(metrics.ReasonMalformed, src, err)
		return
	}

	if m.delegate == nil {
		m.drop(metrics.ReasonUnknownProtocol, src, ErrNoDelegate)
		return
	}
	m.delegate.OnSecureMessage(sess, exHdr, payload)
}

// OnSendError 传输层异步投递失败回调（transport.ErrorHandler）
func (m *Manager) OnSendError(dest types.Address, err error) {
	m.rec.IncSendFailure()
	logger.Warn("投递失败", "dest", dest.String(), "error", err)
}

// drop 丢弃一个入站报文
func (m *Manager) drop(reason string, src types.Address, err error) {
	m.rec.IncDropped(reason)
	logger.Debug("丢弃入站报文", "reason", reason, "src", src.String(), "error", err)
}
