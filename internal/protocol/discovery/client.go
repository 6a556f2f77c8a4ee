package discovery

import (
	"github.com/google/uuid"

	"github.com/dep2p/go-secmsg/internal/core/transport"
	"github.com/dep2p/go-secmsg/pkg/lib/wire"
	"github.com/dep2p/go-secmsg/pkg/types"
)

// Client 发现通告发送方
//
// 通告是明文、无会话的单向报文，计数器只用于区分连发。
type Client struct {
	tr        transport.Manager
	localNode types.NodeID
	counter   uint32
}

// NewClient 创建通告发送方
//
// tr 通常与本端 Server 共用发现传输。
func NewClient(tr transport.Manager, localNode types.NodeID) *Client {
	return &Client{tr: tr, localNode: localNode}
}

// Announce 向 dest 发送一条通告
//
// instanceName 为空时生成随机实例名。返回实际使用的实例名。
// 在事件循环线程上调用。
func (c *Client) Announce(dest types.Address, instanceName string) (string, error) {
	if instanceName == "" {
		instanceName = uuid.NewString()
	}
	if len(instanceName) > wire.MaxPacketSize-wire.PacketHeaderSize-wire.ExchangeHeaderSize {
		return "", ErrInstanceNameTooLong
	}

	c.counter++
	hdr := wire.PacketHeader{
		Counter: c.counter,
		Source:  c.localNode,
	}
	exHdr := wire.ExchangeHeader{
		Initiator:  true,
		ProtocolID: types.ProtocolDiscovery,
	}
	pkt := append(hdr.Encode(), exHdr.Encode([]byte(instanceName))...)
	if err := c.tr.Send(dest, pkt); err != nil {
		return "", err
	}
	logger.Debug("已发送发现通告", "instance", instanceName, "dest", dest)
	return instanceName, nil
}
