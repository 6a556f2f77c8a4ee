package secmsg

import (
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/dep2p/go-secmsg/config"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 用户自定义配置（文件/对象加载，作为基底）
	userConfig *config.Config
	configFile string

	// 身份配置
	nodeID     *uint64
	peerNodeID *uint64

	// 传输配置
	useTCP        *bool
	listenAddress string
	port          *uint16

	// 功能开关
	echoDisabled      bool
	discoveryDisabled bool

	// 配网密钥（明文，序列化时转 Base58）
	pairingSecret []byte

	// 日志配置
	logLevel string
	logFile  string
}

func newOptions() *options {
	return &options{}
}

// toConfig 合成最终配置
//
// 优先级：显式选项 > 配置文件 > 默认值。
func (o *options) toConfig() (*config.Config, error) {
	cfg := config.NewConfig()

	if o.configFile != "" {
		loaded, err := config.LoadFromFile(o.configFile)
		if err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
		cfg = loaded
	}
	if o.userConfig != nil {
		cfg = o.userConfig
	}

	if o.nodeID != nil {
		cfg.Node.NodeID = *o.nodeID
	}
	if o.peerNodeID != nil {
		cfg.Pairing.PeerNodeID = *o.peerNodeID
	}
	if o.useTCP != nil {
		if *o.useTCP {
			cfg.Transport.Mode = config.ModeTCP
		} else {
			cfg.Transport.Mode = config.ModeUDP
		}
	}
	if o.listenAddress != "" {
		cfg.Transport.ListenAddress = o.listenAddress
	}
	if o.port != nil {
		cfg.Transport.Port = *o.port
	}
	if o.echoDisabled {
		cfg.Echo.Enabled = false
	}
	if o.discoveryDisabled {
		cfg.Discovery.Enabled = false
	}
	if o.pairingSecret != nil {
		cfg.Pairing.Secret = base58.Encode(o.pairingSecret)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              传输选项
// ════════════════════════════════════════════════════════════════════════════

// WithTCP 使用 TCP 作为主传输
func WithTCP() Option {
	return func(o *options) error {
		v := true
		o.useTCP = &v
		return nil
	}
}

// WithUDP 使用 UDP 作为主传输（默认）
func WithUDP() Option {
	return func(o *options) error {
		v := false
		o.useTCP = &v
		return nil
	}
}

// WithListenAddress 设置监听地址
func WithListenAddress(addr string) Option {
	return func(o *options) error {
		o.listenAddress = addr
		return nil
	}
}

// WithListenPort 设置主协议监听端口
//
// 发现端口随主端口平移（主端口 + 固定偏移）。
func WithListenPort(port uint16) Option {
	return func(o *options) error {
		if port == 0 {
			return fmt.Errorf("listen port must be non-zero")
		}
		o.port = &port
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              身份与配网选项
// ════════════════════════════════════════════════════════════════════════════

// WithNodeID 设置本地节点 ID
func WithNodeID(id uint64) Option {
	return func(o *options) error {
		if id == 0 {
			return fmt.Errorf("node id must be non-zero")
		}
		o.nodeID = &id
		return nil
	}
}

// WithPeerNodeID 设置配网对端节点 ID
func WithPeerNodeID(id uint64) Option {
	return func(o *options) error {
		if id == 0 {
			return fmt.Errorf("peer node id must be non-zero")
		}
		o.peerNodeID = &id
		return nil
	}
}

// WithPairingSecret 设置配网密钥
func WithPairingSecret(secret []byte) Option {
	return func(o *options) error {
		if len(secret) == 0 {
			return fmt.Errorf("pairing secret must not be empty")
		}
		o.pairingSecret = append([]byte(nil), secret...)
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              功能开关选项
// ════════════════════════════════════════════════════════════════════════════

// WithEchoDisabled 不注册 Echo 响应器
//
// 入站 Echo 请求按未知协议丢弃。
func WithEchoDisabled() Option {
	return func(o *options) error {
		o.echoDisabled = true
		return nil
	}
}

// WithDiscoveryDisabled 不启动发现监听
func WithDiscoveryDisabled() Option {
	return func(o *options) error {
		o.discoveryDisabled = true
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置与日志选项
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 以完整配置对象为基底
//
// 与 WithConfigFile 互斥，对象优先。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("config must not be nil")
		}
		o.userConfig = cfg
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置基底
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configFile = path
		return nil
	}
}

// WithLogLevel 设置日志级别（debug/info/warn/error）
func WithLogLevel(level string) Option {
	return func(o *options) error {
		o.logLevel = level
		return nil
	}
}

// WithLogFile 设置日志输出文件，空表示 stderr
func WithLogFile(path string) Option {
	return func(o *options) error {
		o.logFile = path
		return nil
	}
}
