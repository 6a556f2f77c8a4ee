// Package discovery 实现发现通告的收发
//
// 通告走独立的 UDP 端口（主端口 + 固定偏移），报文不加密：
// 交换头协议号为 ProtocolDiscovery，载荷是 UTF-8 实例名。
// 这是配对前的引导信道，对端此时还没有会话。
package discovery

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-secmsg/internal/core/metrics"
	"github.com/dep2p/go-secmsg/internal/core/transport"
	"github.com/dep2p/go-secmsg/pkg/lib/log"
	"github.com/dep2p/go-secmsg/pkg/lib/wire"
	"github.com/dep2p/go-secmsg/pkg/types"
)

var logger = log.Logger("secmsg/discovery")

// InstanceNameResolver 实例名解析钩子
//
// 每个新实例名触发一次（或在缓存淘汰后再次触发）；
// name 是报文载荷的副本，可长期持有。在事件循环线程上调用。
type InstanceNameResolver func(name string)

// Server 发现监听器
//
// 持有自己的发现传输，状态只在事件循环线程上变更。
type Server struct {
	tr  transport.Manager
	rec *metrics.Recorder

	seen     *lru.Cache[string, types.Address]
	resolver InstanceNameResolver
}

// NewServer 创建发现监听器
//
// tr 是仅供发现使用的传输，Server 接管其入站回调；
// cacheSize 是实例名去重缓存的容量。
func NewServer(tr transport.Manager, rec *metrics.Recorder, cacheSize int) (*Server, error) {
	if cacheSize <= 0 {
		return nil, ErrInvalidCacheSize
	}
	seen, err := lru.New[string, types.Address](cacheSize)
	if err != nil {
		return nil, err
	}
	s := &Server{tr: tr, rec: rec, seen: seen}
	tr.SetMessageSink(s.onRawPacket)
	return s, nil
}

// SetInstanceNameResolver 安装实例名解析钩子（引导阶段调用一次）
func (s *Server) SetInstanceNameResolver(fn InstanceNameResolver) {
	s.resolver = fn
}

// Start 启动发现传输
func (s *Server) Start() error {
	if err := s.tr.Start(); err != nil {
		return err
	}
	logger.Info("发现监听已启动", "addr", s.tr.LocalAddr())
	return nil
}

// Close 关闭发现传输
func (s *Server) Close() error {
	return s.tr.Close()
}

// LocalAddr 发现传输的本地地址
func (s *Server) LocalAddr() types.Address {
	return s.tr.LocalAddr()
}

// KnownInstances 当前缓存中的实例数（诊断用）
func (s *Server) KnownInstances() int {
	return s.seen.Len()
}

// onRawPacket 发现传输的入站回调（循环线程）
//
// 通告必须是明文：带加密标志的报文在这个端口上没有意义。
func (s *Server) onRawPacket(src types.Address, data []byte) {
	hdr, body, err := wire.DecodePacketHeader(data)
	if err != nil {
		s.rec.IncDropped(metrics.ReasonMalformed)
		logger.Debug("丢弃畸形通告", "error", err, "src", src)
		return
	}
	if hdr.Flags&wire.FlagEncrypted != 0 {
		s.rec.IncDropped(metrics.ReasonMalformed)
		logger.Debug("丢弃加密标志的通告", "src", src)
		return
	}
	exHdr, payload, err := wire.DecodeExchangeHeader(body)
	if err != nil {
		s.rec.IncDropped(metrics.ReasonMalformed)
		logger.Debug("丢弃畸形通告", "error", err, "src", src)
		return
	}
	if exHdr.ProtocolID != types.ProtocolDiscovery {
		s.rec.IncDropped(metrics.ReasonUnknownProtocol)
		logger.Debug("丢弃非发现协议的报文",
			"protocolID", exHdr.ProtocolID, "src", src)
		return
	}

	name := string(payload)
	if _, dup := s.seen.Get(name); dup {
		s.rec.IncDuplicateAnnouncement()
		logger.Debug("合并重复通告", "instance", name, "src", src)
		return
	}
	s.seen.Add(name, src)
	s.rec.IncAnnouncement()
	logger.Info("收到发现通告",
		"instance", name,
		"src", src,
		"source", hdr.Source)

	if s.resolver != nil {
		s.resolver(name)
	}
}
