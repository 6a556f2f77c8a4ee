// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 支持从 JSON 加载和保存配置
//   - 根包的函数式选项（options.go）叠加在 Config 之上
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Transport.Mode = config.ModeTCP
//	cfg.Echo.Enabled = false
package config

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// 传输模式
const (
	// ModeUDP 无连接传输（默认）
	ModeUDP = "udp"

	// ModeTCP 面向连接传输
	ModeTCP = "tcp"
)

// 默认值（与原始协议栈保持一致）
const (
	// DefaultPort 主协议监听端口
	DefaultPort uint16 = 5540

	// DefaultDiscoveryPortOffset 发现/通告端口相对主端口的固定偏移
	DefaultDiscoveryPortOffset uint16 = 3

	// DefaultListenAddress 默认监听地址
	DefaultListenAddress = "0.0.0.0"

	// DefaultMaxActiveConnections TCP 最大并发连接数
	DefaultMaxActiveConnections = 4

	// DefaultMaxPendingPackets TCP 每连接最大待发报文数
	DefaultMaxPendingPackets = 2

	// DefaultDedupCacheSize 发现通告去重缓存容量
	DefaultDedupCacheSize = 16
)

// DefaultPairingSecret 测试配网密钥
//
// 与外部配网/握手模块对接前的固定测试密钥，配置中以 Base58 形式出现。
const DefaultPairingSecret = "Test secret for key derivation"

// Config 是 SecMsg 响应器的完整配置结构
//
// 该结构体嵌入了所有组件的子配置，提供统一的配置接口：
//   - Node: 本地节点身份与分区
//   - Transport: 传输层（UDP/TCP、端口、连接上限）
//   - Counter: 消息计数器（防重放窗口）
//   - Exchange: 交换层（响应超时）
//   - Echo / Discovery: 两个协议角色的开关
//   - Pairing: 启动时安装的测试配网会话
//   - Log: 日志
type Config struct {
	// Node 本地节点配置
	Node NodeConfig `json:"node"`

	// Transport 传输层配置
	Transport TransportConfig `json:"transport"`

	// Counter 消息计数器配置
	Counter CounterConfig `json:"counter"`

	// Exchange 交换层配置
	Exchange ExchangeConfig `json:"exchange"`

	// Echo Echo 协议配置
	Echo EchoConfig `json:"echo"`

	// Discovery 发现监听配置
	Discovery DiscoveryConfig `json:"discovery"`

	// Pairing 启动时安装的配网会话
	Pairing PairingConfig `json:"pairing"`

	// Log 日志配置
	Log LogConfig `json:"log"`
}

// NodeConfig 本地节点配置
type NodeConfig struct {
	// NodeID 本地节点 ID
	NodeID uint64 `json:"node_id"`

	// PartitionID 本进程使用的分区 ID
	PartitionID uint16 `json:"partition_id"`
}

// TransportConfig 传输层配置
type TransportConfig struct {
	// Mode 传输模式：udp 或 tcp（二者互斥，同一逻辑服务只用一种）
	Mode string `json:"mode"`

	// ListenAddress 监听地址
	ListenAddress string `json:"listen_address"`

	// Port 主协议监听端口
	Port uint16 `json:"port"`

	// DiscoveryPortOffset 发现端口相对主端口的偏移
	DiscoveryPortOffset uint16 `json:"discovery_port_offset"`

	// TCP 面向连接模式的限制
	TCP TCPConfig `json:"tcp"`
}

// TCPConfig TCP 传输配置
type TCPConfig struct {
	// MaxActiveConnections 最大并发连接数，超出的连接被静默丢弃
	MaxActiveConnections int `json:"max_active_connections"`

	// MaxPendingPackets 每连接出站队列上限，溢出通过错误回调上报
	MaxPendingPackets int `json:"max_pending_packets"`
}

// CounterConfig 消息计数器配置
type CounterConfig struct {
	// WindowSize 乱序容忍窗口（位图宽度），范围 [1, 64]
	WindowSize uint32 `json:"window_size"`

	// MaxForwardJump 入站计数器允许的最大超前跨度
	MaxForwardJump uint32 `json:"max_forward_jump"`
}

// ExchangeConfig 交换层配置
type ExchangeConfig struct {
	// ResponseTimeout 发起方等待响应的截止时间
	ResponseTimeout Duration `json:"response_timeout"`
}

// EchoConfig Echo 协议配置
type EchoConfig struct {
	// Enabled 是否注册 Echo 响应器
	Enabled bool `json:"enabled"`
}

// DiscoveryConfig 发现监听配置
type DiscoveryConfig struct {
	// Enabled 是否启动发现监听
	Enabled bool `json:"enabled"`

	// DedupCacheSize 实例名去重缓存容量
	DedupCacheSize int `json:"dedup_cache_size"`
}

// PairingConfig 配网会话配置
//
// 这是真实握手模块的接缝：生产系统在此处调用外部配对/握手，
// 本进程直接安装一条带测试密钥的会话。
type PairingConfig struct {
	// PeerNodeID 对端（发起方）节点 ID
	PeerNodeID uint64 `json:"peer_node_id"`

	// Secret Base58 编码的配网密钥
	Secret string `json:"secret"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别（debug/info/warn/error）
	Level string `json:"level"`

	// File 日志文件路径，空表示 stderr
	File string `json:"file"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Node: NodeConfig{
			NodeID:      12344, // 测试设备节点
			PartitionID: 0,
		},
		Transport: TransportConfig{
			Mode:                ModeUDP,
			ListenAddress:       DefaultListenAddress,
			Port:                DefaultPort,
			DiscoveryPortOffset: DefaultDiscoveryPortOffset,
			TCP: TCPConfig{
				MaxActiveConnections: DefaultMaxActiveConnections,
				MaxPendingPackets:    DefaultMaxPendingPackets,
			},
		},
		Counter: CounterConfig{
			WindowSize:     32,
			MaxForwardJump: 1 << 16,
		},
		Exchange: ExchangeConfig{
			ResponseTimeout: Seconds(10),
		},
		Echo:      EchoConfig{Enabled: true},
		Discovery: DiscoveryConfig{Enabled: true, DedupCacheSize: DefaultDedupCacheSize},
		Pairing: PairingConfig{
			PeerNodeID: 112233, // 测试控制器节点
			Secret:     base58.Encode([]byte(DefaultPairingSecret)),
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Node.NodeID == 0 {
		return fmt.Errorf("config: node.node_id must be defined")
	}
	if c.Transport.Mode != ModeUDP && c.Transport.Mode != ModeTCP {
		return fmt.Errorf("config: unknown transport mode %q", c.Transport.Mode)
	}
	if c.Transport.Port == 0 {
		return fmt.Errorf("config: transport.port must be non-zero")
	}
	if c.Transport.DiscoveryPortOffset == 0 {
		return fmt.Errorf("config: transport.discovery_port_offset must be non-zero")
	}
	if c.Transport.TCP.MaxActiveConnections < 1 {
		return fmt.Errorf("config: tcp.max_active_connections must be >= 1")
	}
	if c.Transport.TCP.MaxPendingPackets < 1 {
		return fmt.Errorf("config: tcp.max_pending_packets must be >= 1")
	}
	if c.Counter.WindowSize < 1 || c.Counter.WindowSize > 64 {
		return fmt.Errorf("config: counter.window_size must be in [1, 64]")
	}
	if c.Exchange.ResponseTimeout.Duration() <= 0 {
		return fmt.Errorf("config: exchange.response_timeout must be positive")
	}
	if c.Pairing.PeerNodeID == 0 {
		return fmt.Errorf("config: pairing.peer_node_id must be defined")
	}
	if _, err := base58.Decode(c.Pairing.Secret); err != nil {
		return fmt.Errorf("config: pairing.secret is not valid base58: %w", err)
	}
	if c.Discovery.Enabled && c.Discovery.DedupCacheSize < 1 {
		return fmt.Errorf("config: discovery.dedup_cache_size must be >= 1")
	}
	return nil
}

// PairingSecretBytes 返回解码后的配网密钥
func (c *Config) PairingSecretBytes() ([]byte, error) {
	secret, err := base58.Decode(c.Pairing.Secret)
	if err != nil {
		return nil, fmt.Errorf("config: decode pairing secret: %w", err)
	}
	return secret, nil
}

// DiscoveryPort 返回发现/通告端口
func (c *Config) DiscoveryPort() uint16 {
	return c.Transport.Port + c.Transport.DiscoveryPortOffset
}
