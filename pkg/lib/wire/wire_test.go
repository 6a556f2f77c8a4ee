package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-secmsg/pkg/types"
)

// TestPacketHeader_RoundTrip 测试包头编解码
func TestPacketHeader_RoundTrip(t *testing.T) {
	h := PacketHeader{
		Flags:     FlagEncrypted,
		Partition: 7,
		Counter:   0xDEADBEEF,
		Source:    types.TestControllerNodeID,
		Dest:      types.TestDeviceNodeID,
	}

	buf := h.Encode()
	require.Len(t, buf, PacketHeaderSize)

	body := []byte("body bytes")
	decoded, rest, err := DecodePacketHeader(append(buf, body...))
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
	assert.Equal(t, body, rest)
	assert.True(t, decoded.IsEncrypted())
}

// TestDecodePacketHeader_TooShort 测试截断报文
func TestDecodePacketHeader_TooShort(t *testing.T) {
	_, _, err := DecodePacketHeader(make([]byte, PacketHeaderSize-1))
	assert.ErrorIs(t, err, ErrPacketTooShort)
}

// TestDecodePacketHeader_BadVersion 测试未知版本
func TestDecodePacketHeader_BadVersion(t *testing.T) {
	buf := (&PacketHeader{}).Encode()
	buf[1] = 9
	_, _, err := DecodePacketHeader(buf)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

// TestExchangeHeader_RoundTrip 测试交换头编解码
func TestExchangeHeader_RoundTrip(t *testing.T) {
	h := ExchangeHeader{
		Initiator:  true,
		ExchangeID: 42,
		ProtocolID: types.ProtocolEcho,
	}

	payload := []byte("PING")
	body := h.Encode(payload)
	require.Len(t, body, ExchangeHeaderSize+len(payload))

	decoded, rest, err := DecodeExchangeHeader(body)
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
	assert.Equal(t, payload, rest)
}

// TestDecodeExchangeHeader_TooShort 测试截断交换头
func TestDecodeExchangeHeader_TooShort(t *testing.T) {
	_, _, err := DecodeExchangeHeader([]byte{1, 2})
	assert.ErrorIs(t, err, ErrPacketTooShort)
}
