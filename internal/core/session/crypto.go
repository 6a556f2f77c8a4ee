package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/dep2p/go-secmsg/pkg/lib/wire"
	"github.com/dep2p/go-secmsg/pkg/types"
)

// nonceSize AES-GCM 随机数长度
const nonceSize = 12

// deriveAEAD 从配网密钥派生会话 AEAD
//
// 密钥材料由外部配对流程提供，这里只做确定性展开（SHA-256 →
// AES-256-GCM）。真实握手接入后，此函数被协商出的密钥替代。
func deriveAEAD(secret []byte) (cipher.AEAD, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	key := sha256.Sum256(secret)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("session: derive key: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("session: init aead: %w", err)
	}
	return aead, nil
}

// nonceFor 构造报文随机数
//
// 计数器 ‖ 源节点 ID：双方共用同一密钥材料，源节点 ID 保证两个
// 方向的随机数不相撞；计数器的严格递增保证同方向不重复。
func nonceFor(counter uint32, source types.NodeID) []byte {
	nonce := make([]byte, nonceSize)
	binary.LittleEndian.PutUint32(nonce[0:4], counter)
	binary.LittleEndian.PutUint64(nonce[4:12], uint64(source))
	return nonce
}

// seal 加密包体，包头作为附加认证数据
func seal(aead cipher.AEAD, hdr *wire.PacketHeader, body []byte) []byte {
	aad := hdr.Encode()
	return aead.Seal(nil, nonceFor(hdr.Counter, hdr.Source), body, aad)
}

// open 解密包体，认证失败返回 ErrAuthenticationFailure
func open(aead cipher.AEAD, hdr *wire.PacketHeader, ciphertext []byte) ([]byte, error) {
	aad := hdr.Encode()
	body, err := aead.Open(nil, nonceFor(hdr.Counter, hdr.Source), ciphertext, aad)
	if err != nil {
		return nil, ErrAuthenticationFailure
	}
	return body, nil
}
