package types

import (
	"fmt"
	"net"
	"net/netip"
)

// ============================================================================
//                              Address - 对端地址
// ============================================================================

// Address 传输层对端地址
//
// 纯值类型，同时适用于无连接（UDP）和面向连接（TCP）传输。
type Address struct {
	// IP 对端 IP 地址
	IP netip.Addr

	// Port 对端端口
	Port uint16
}

// AddressFromNetAddr 从 net.Addr 解析 Address
func AddressFromNetAddr(addr net.Addr) (Address, error) {
	var ap netip.AddrPort
	switch a := addr.(type) {
	case *net.UDPAddr:
		ap = a.AddrPort()
	case *net.TCPAddr:
		ap = a.AddrPort()
	default:
		parsed, err := netip.ParseAddrPort(addr.String())
		if err != nil {
			return Address{}, fmt.Errorf("unsupported address %q: %w", addr.String(), err)
		}
		ap = parsed
	}
	return Address{IP: ap.Addr().Unmap(), Port: ap.Port()}, nil
}

// String 返回 "ip:port" 形式
func (a Address) String() string {
	return netip.AddrPortFrom(a.IP, a.Port).String()
}

// IsValid 检查地址是否有效
func (a Address) IsValid() bool {
	return a.IP.IsValid() && a.Port != 0
}

// Equal 比较两个地址是否相等
func (a Address) Equal(other Address) bool {
	return a.IP == other.IP && a.Port == other.Port
}
