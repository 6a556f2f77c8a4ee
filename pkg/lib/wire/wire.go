// Package wire 定义 SecMsg 的网络报文格式
//
// pkg/types 定义 Go 内部数据结构（内存结构），
// pkg/lib/wire 定义网络协议消息（wire format）。
//
// 报文布局（小端序）：
//
//	明文包头（24 字节）:
//	  [0]     Flags        bit0 = 会话加密
//	  [1]     Version      保留，当前为 0
//	  [2:4]   PartitionID  uint16
//	  [4:8]   Counter      uint32 消息计数器
//	  [8:16]  SourceNodeID uint64
//	  [16:24] DestNodeID   uint64
//
//	包体（加密时为 AEAD 密文，包头作为附加认证数据）:
//	  [0]     ExchangeFlags bit0 = initiator
//	  [1:3]   ExchangeID    uint16
//	  [3:5]   ProtocolID    uint16
//	  [5:]    Payload       不透明载荷
package wire

import (
	"encoding/binary"
	"errors"

	"github.com/dep2p/go-secmsg/pkg/types"
)

// 报文尺寸常量
const (
	// PacketHeaderSize 明文包头长度
	PacketHeaderSize = 24

	// ExchangeHeaderSize 交换头长度
	ExchangeHeaderSize = 5

	// MaxPacketSize 单个报文的最大长度（含包头）
	MaxPacketSize = 64 * 1024
)

// 包头标志位
const (
	// FlagEncrypted 包体为会话密文
	FlagEncrypted uint8 = 1 << 0
)

// 交换头标志位
const (
	// FlagInitiator 消息由 Exchange 发起方发出
	FlagInitiator uint8 = 1 << 0
)

// 错误定义
var (
	// ErrPacketTooShort 报文长度不足
	ErrPacketTooShort = errors.New("wire: packet too short")

	// ErrPacketTooLarge 报文超过最大长度
	ErrPacketTooLarge = errors.New("wire: packet too large")

	// ErrUnsupportedVersion 不支持的报文版本
	ErrUnsupportedVersion = errors.New("wire: unsupported packet version")
)

// ============================================================================
//                              PacketHeader
// ============================================================================

// PacketHeader 明文包头
//
// 整个包头在加密模式下作为 AEAD 的附加认证数据，篡改会导致解密失败。
type PacketHeader struct {
	Flags     uint8
	Partition types.PartitionID
	Counter   uint32
	Source    types.NodeID
	Dest      types.NodeID
}

// IsEncrypted 包体是否为会话密文
func (h *PacketHeader) IsEncrypted() bool {
	return h.Flags&FlagEncrypted != 0
}

// Encode 编码包头
func (h *PacketHeader) Encode() []byte {
	buf := make([]byte, PacketHeaderSize)
	buf[0] = h.Flags
	buf[1] = 0 // version
	binary.LittleEndian.PutUint16(buf[2:4], uint16(h.Partition))
	binary.LittleEndian.PutUint32(buf[4:8], h.Counter)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.Source))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.Dest))
	return buf
}

// DecodePacketHeader 解码包头，返回包头和剩余包体
func DecodePacketHeader(data []byte) (PacketHeader, []byte, error) {
	if len(data) < PacketHeaderSize {
		return PacketHeader{}, nil, ErrPacketTooShort
	}
	if len(data) > MaxPacketSize {
		return PacketHeader{}, nil, ErrPacketTooLarge
	}
	if data[1] != 0 {
		return PacketHeader{}, nil, ErrUnsupportedVersion
	}
	h := PacketHeader{
		Flags:     data[0],
		Partition: types.PartitionID(binary.LittleEndian.Uint16(data[2:4])),
		Counter:   binary.LittleEndian.Uint32(data[4:8]),
		Source:    types.NodeID(binary.LittleEndian.Uint64(data[8:16])),
		Dest:      types.NodeID(binary.LittleEndian.Uint64(data[16:24])),
	}
	return h, data[PacketHeaderSize:], nil
}

// ============================================================================
//                              ExchangeHeader
// ============================================================================

// ExchangeHeader 交换头
//
// 位于包体起始处，加密模式下随载荷一起被加密。
type ExchangeHeader struct {
	Initiator  bool
	ExchangeID types.ExchangeID
	ProtocolID types.ProtocolID
}

// Encode 编码交换头并拼接载荷
func (h *ExchangeHeader) Encode(payload []byte) []byte {
	buf := make([]byte, ExchangeHeaderSize, ExchangeHeaderSize+len(payload))
	if h.Initiator {
		buf[0] |= FlagInitiator
	}
	binary.LittleEndian.PutUint16(buf[1:3], uint16(h.ExchangeID))
	binary.LittleEndian.PutUint16(buf[3:5], uint16(h.ProtocolID))
	return append(buf, payload...)
}

// DecodeExchangeHeader 解码交换头，返回交换头和载荷
func DecodeExchangeHeader(body []byte) (ExchangeHeader, []byte, error) {
	if len(body) < ExchangeHeaderSize {
		return ExchangeHeader{}, nil, ErrPacketTooShort
	}
	h := ExchangeHeader{
		Initiator:  body[0]&FlagInitiator != 0,
		ExchangeID: types.ExchangeID(binary.LittleEndian.Uint16(body[1:3])),
		ProtocolID: types.ProtocolID(binary.LittleEndian.Uint16(body[3:5])),
	}
	return h, body[ExchangeHeaderSize:], nil
}
