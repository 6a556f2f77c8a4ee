package session

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-secmsg/internal/core/admin"
	"github.com/dep2p/go-secmsg/internal/core/counter"
	"github.com/dep2p/go-secmsg/internal/core/transport"
	"github.com/dep2p/go-secmsg/pkg/lib/wire"
	"github.com/dep2p/go-secmsg/pkg/types"
)

var (
	testSecret   = []byte("Test secret for key derivation")
	deviceAddr   = types.Address{IP: netip.MustParseAddr("127.0.0.1"), Port: 5540}
	controllAddr = types.Address{IP: netip.MustParseAddr("127.0.0.1"), Port: 6540}
)

// fakeTransport 进程内传输替身
type fakeTransport struct {
	local   types.Address
	sink    transport.RawSink
	onError transport.ErrorHandler

	sent []sentPacket
	// peer 非空时，发送直接同步投递给对端（测试在单 goroutine 中跑，
	// 等价于都在循环线程上）
	peer *fakeTransport
}

type sentPacket struct {
	dest types.Address
	data []byte
}

var _ transport.Manager = (*fakeTransport)(nil)

func (f *fakeTransport) Start() error                              { return nil }
func (f *fakeTransport) LocalAddr() types.Address                  { return f.local }
func (f *fakeTransport) SetMessageSink(s transport.RawSink)        { f.sink = s }
func (f *fakeTransport) SetErrorHandler(h transport.ErrorHandler)  { f.onError = h }
func (f *fakeTransport) Close() error                              { return nil }

func (f *fakeTransport) Send(dest types.Address, data []byte) error {
	f.sent = append(f.sent, sentPacket{dest: dest, data: data})
	if f.peer != nil && f.peer.sink != nil {
		f.peer.sink(f.local, data)
	}
	return nil
}

// recordingDelegate 记录收到的安全消息
type recordingDelegate struct {
	sessions []*Session
	headers  []wire.ExchangeHeader
	payloads [][]byte
}

func (d *recordingDelegate) OnSecureMessage(sess *Session, hdr wire.ExchangeHeader, payload []byte) {
	d.sessions = append(d.sessions, sess)
	d.headers = append(d.headers, hdr)
	d.payloads = append(d.payloads, payload)
}

// newDeviceManager 构造响应方（设备）会话管理器
func newDeviceManager(t *testing.T, tr transport.Manager) *Manager {
	t.Helper()
	admins := admin.NewTable()
	_, err := admins.Assign(types.DefaultPartitionID, types.TestDeviceNodeID)
	require.NoError(t, err)

	counters, err := counter.NewManager(counter.DefaultConfig())
	require.NoError(t, err)

	return NewManager(admins, counters, tr, nil)
}

// peerPacket 以控制器身份手工构造一个加密报文
func peerPacket(t *testing.T, c uint32, hdr wire.ExchangeHeader, payload []byte) []byte {
	t.Helper()
	aead, err := deriveAEAD(testSecret)
	require.NoError(t, err)

	pktHdr := wire.PacketHeader{
		Flags:     wire.FlagEncrypted,
		Partition: types.DefaultPartitionID,
		Counter:   c,
		Source:    types.TestControllerNodeID,
		Dest:      types.TestDeviceNodeID,
	}
	return append(pktHdr.Encode(), seal(aead, &pktHdr, hdr.Encode(payload))...)
}

func installTestPairing(t *testing.T, m *Manager) *Session {
	t.Helper()
	sess, err := m.InstallPairing(types.DefaultPartitionID, types.TestControllerNodeID,
		testSecret, types.RoleResponder, types.Address{})
	require.NoError(t, err)
	return sess
}

// TestInstallPairing_Duplicate 测试重复配网被拒绝且原会话不受影响
func TestInstallPairing_Duplicate(t *testing.T) {
	m := newDeviceManager(t, &fakeTransport{local: deviceAddr})
	sess := installTestPairing(t, m)

	_, err := m.InstallPairing(types.DefaultPartitionID, types.TestControllerNodeID,
		[]byte("another secret"), types.RoleResponder, types.Address{})
	assert.ErrorIs(t, err, ErrDuplicateSession)

	// 原会话仍在且就是第一次安装的那条
	found, err := m.Lookup(types.DefaultPartitionID, types.TestControllerNodeID)
	require.NoError(t, err)
	assert.Same(t, sess, found)
	assert.Equal(t, 1, m.Count())

	t.Log("✅ DuplicateSession 行为正确")
}

// TestInstallPairing_UnknownPartition 测试未登记分区
func TestInstallPairing_UnknownPartition(t *testing.T) {
	m := newDeviceManager(t, &fakeTransport{local: deviceAddr})
	_, err := m.InstallPairing(99, types.TestControllerNodeID,
		testSecret, types.RoleResponder, types.Address{})
	assert.ErrorIs(t, err, admin.ErrPartitionNotFound)
}

// TestInstallPairing_EmptySecret 测试空密钥
func TestInstallPairing_EmptySecret(t *testing.T) {
	m := newDeviceManager(t, &fakeTransport{local: deviceAddr})
	_, err := m.InstallPairing(types.DefaultPartitionID, types.TestControllerNodeID,
		nil, types.RoleResponder, types.Address{})
	assert.ErrorIs(t, err, ErrEmptySecret)
}

// TestOnRawMessage_DeliversToDelegate 测试入站管线直达消息代理
func TestOnRawMessage_DeliversToDelegate(t *testing.T) {
	m := newDeviceManager(t, &fakeTransport{local: deviceAddr})
	sess := installTestPairing(t, m)

	delegate := &recordingDelegate{}
	m.SetMessageDelegate(delegate)

	hdr := wire.ExchangeHeader{Initiator: true, ExchangeID: 1, ProtocolID: types.ProtocolEcho}
	m.OnRawMessage(controllAddr, peerPacket(t, 1, hdr, []byte("PING")))

	require.Len(t, delegate.payloads, 1)
	assert.Equal(t, []byte("PING"), delegate.payloads[0])
	assert.Equal(t, hdr, delegate.headers[0])
	assert.Same(t, sess, delegate.sessions[0])

	// 对端地址从入站报文学到
	assert.Equal(t, controllAddr, sess.PeerAddress())
}

// TestOnRawMessage_ReplayRejected 测试同计数器的报文只被接受一次
func TestOnRawMessage_ReplayRejected(t *testing.T) {
	m := newDeviceManager(t, &fakeTransport{local: deviceAddr})
	installTestPairing(t, m)

	delegate := &recordingDelegate{}
	m.SetMessageDelegate(delegate)

	hdr := wire.ExchangeHeader{Initiator: true, ExchangeID: 1, ProtocolID: types.ProtocolEcho}
	packet := peerPacket(t, 7, hdr, []byte("once"))

	m.OnRawMessage(controllAddr, packet)
	m.OnRawMessage(controllAddr, packet)
	m.OnRawMessage(controllAddr, packet)

	assert.Len(t, delegate.payloads, 1, "重放报文不得再次投递")
}

// TestOnRawMessage_TamperDoesNotCommitCounter 测试篡改报文不推动窗口
func TestOnRawMessage_TamperDoesNotCommitCounter(t *testing.T) {
	m := newDeviceManager(t, &fakeTransport{local: deviceAddr})
	installTestPairing(t, m)

	delegate := &recordingDelegate{}
	m.SetMessageDelegate(delegate)

	hdr := wire.ExchangeHeader{Initiator: true, ExchangeID: 2, ProtocolID: types.ProtocolEcho}
	packet := peerPacket(t, 3, hdr, []byte("payload"))

	// 翻转密文中的一个比特
	tampered := append([]byte(nil), packet...)
	tampered[len(tampered)-1] ^= 0x01
	m.OnRawMessage(controllAddr, tampered)
	assert.Empty(t, delegate.payloads)

	// 同一计数器的原始报文仍可接受：认证失败不得提交计数器
	m.OnRawMessage(controllAddr, packet)
	assert.Len(t, delegate.payloads, 1)
}

// TestOnRawMessage_DropPaths 测试各类稳态丢包路径不崩溃、不投递
func TestOnRawMessage_DropPaths(t *testing.T) {
	m := newDeviceManager(t, &fakeTransport{local: deviceAddr})
	installTestPairing(t, m)

	delegate := &recordingDelegate{}
	m.SetMessageDelegate(delegate)

	// 畸形：太短
	m.OnRawMessage(controllAddr, []byte{1, 2, 3})

	// 未知分区
	pkt := peerPacket(t, 1, wire.ExchangeHeader{}, []byte("x"))
	bad := append([]byte(nil), pkt...)
	bad[2] = 0xFF
	m.OnRawMessage(controllAddr, bad)

	// 无会话的源节点
	aead, err := deriveAEAD(testSecret)
	require.NoError(t, err)
	hdr := wire.PacketHeader{
		Flags: wire.FlagEncrypted, Partition: types.DefaultPartitionID,
		Counter: 1, Source: 777, Dest: types.TestDeviceNodeID,
	}
	stranger := append(hdr.Encode(), seal(aead, &hdr, []byte("hello"))...)
	m.OnRawMessage(controllAddr, stranger)

	// 主传输上的明文
	plainHdr := wire.PacketHeader{
		Partition: types.DefaultPartitionID, Counter: 2,
		Source: types.TestControllerNodeID, Dest: types.TestDeviceNodeID,
	}
	ex := wire.ExchangeHeader{ProtocolID: types.ProtocolEcho}
	m.OnRawMessage(controllAddr, append(plainHdr.Encode(), ex.Encode([]byte("plain"))...))

	assert.Empty(t, delegate.payloads)
}

// TestSendMessage_PeerAddressUnknown 测试未知对端地址
func TestSendMessage_PeerAddressUnknown(t *testing.T) {
	m := newDeviceManager(t, &fakeTransport{local: deviceAddr})
	sess := installTestPairing(t, m)

	err := m.SendMessage(sess, wire.ExchangeHeader{ProtocolID: types.ProtocolEcho}, []byte("x"))
	assert.ErrorIs(t, err, ErrPeerAddressUnknown)
}

// TestSendMessage_RoundTrip 测试两个管理器之间的全双工收发
func TestSendMessage_RoundTrip(t *testing.T) {
	devTr := &fakeTransport{local: deviceAddr}
	ctlTr := &fakeTransport{local: controllAddr}
	devTr.peer = ctlTr
	ctlTr.peer = devTr

	// 设备侧
	device := newDeviceManager(t, devTr)
	devTr.SetMessageSink(device.OnRawMessage)
	installTestPairing(t, device)

	// 控制器侧：分区相同，本地节点是控制器
	ctlAdmins := admin.NewTable()
	_, err := ctlAdmins.Assign(types.DefaultPartitionID, types.TestControllerNodeID)
	require.NoError(t, err)
	ctlCounters, err := counter.NewManager(counter.DefaultConfig())
	require.NoError(t, err)
	controller := NewManager(ctlAdmins, ctlCounters, ctlTr, nil)
	ctlTr.SetMessageSink(controller.OnRawMessage)
	ctlSess, err := controller.InstallPairing(types.DefaultPartitionID, types.TestDeviceNodeID,
		testSecret, types.RoleInitiator, deviceAddr)
	require.NoError(t, err)

	devDelegate := &recordingDelegate{}
	ctlDelegate := &recordingDelegate{}
	device.SetMessageDelegate(devDelegate)
	controller.SetMessageDelegate(ctlDelegate)

	// 控制器 → 设备
	req := wire.ExchangeHeader{Initiator: true, ExchangeID: 9, ProtocolID: types.ProtocolEcho}
	require.NoError(t, controller.SendMessage(ctlSess, req, []byte("PING")))
	require.Len(t, devDelegate.payloads, 1)
	assert.Equal(t, []byte("PING"), devDelegate.payloads[0])

	// 设备 → 控制器（响应，翻转 initiator 标志）
	devSess := devDelegate.sessions[0]
	rsp := wire.ExchangeHeader{Initiator: false, ExchangeID: 9, ProtocolID: types.ProtocolEcho}
	require.NoError(t, device.SendMessage(devSess, rsp, []byte("PING")))
	require.Len(t, ctlDelegate.payloads, 1)
	assert.Equal(t, []byte("PING"), ctlDelegate.payloads[0])
	assert.Equal(t, rsp, ctlDelegate.headers[0])
}
