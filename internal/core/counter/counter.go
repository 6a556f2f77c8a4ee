package counter

import (
	"math"
)

// 默认配置
const (
	// DefaultWindowSize 默认乱序容忍窗口（位图宽度）
	DefaultWindowSize = 32

	// DefaultMaxForwardJump 默认允许的最大超前跨度
	DefaultMaxForwardJump = 1 << 16
)

// Config 计数器配置
type Config struct {
	// WindowSize 乱序容忍窗口大小，范围 [1, 64]
	WindowSize uint32

	// MaxForwardJump 入站计数器允许的最大超前跨度，
	// 超过视为失步（ErrCounterDesync）
	MaxForwardJump uint32
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		WindowSize:     DefaultWindowSize,
		MaxForwardJump: DefaultMaxForwardJump,
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	if c.WindowSize < 1 || c.WindowSize > 64 {
		return ErrInvalidWindowSize
	}
	return nil
}

// Manager 计数器管理器
//
// 为每个会话派生一份独立的 PeerState；自身只持有配置。
type Manager struct {
	cfg Config
}

// NewManager 创建计数器管理器
func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg}, nil
}

// NewPeerState 为一个新会话派生计数器状态
func (m *Manager) NewPeerState() *PeerState {
	return &PeerState{cfg: m.cfg}
}

// ============================================================================
//                              PeerState
// ============================================================================

// PeerState 单个会话的计数器状态
//
// 状态只在事件循环线程上变更，不加锁。
type PeerState struct {
	cfg Config

	// 出站：最近一次使用的计数器值，0 表示尚未发送
	outbound uint32

	// 入站：高水位线与滑动位图窗口。
	// window 的第 i 位表示计数器 (maxInbound - 1 - i) 已被接受。
	synced     bool
	maxInbound uint32
	window     uint64
}

// NextOutbound 返回下一个出站计数器值（严格递增）
//
// 回绕返回 ErrCounterExhausted：继续使用会悄悄破坏防重放不变量，
// 调用方必须重建会话。
func (s *PeerState) NextOutbound() (uint32, error) {
	if s.outbound == math.MaxUint32 {
		return 0, ErrCounterExhausted
	}
	s.outbound++
	return s.outbound, nil
}

// ValidateInbound 校验入站计数器，不变更状态
//
// 接受后必须调用 CommitInbound（只在解密成功之后提交，避免伪造
// 报文推动窗口）。
func (s *PeerState) ValidateInbound(c uint32) error {
	if !s.synced {
		// 第一个被接受的计数器确立高水位线
		return nil
	}

	switch {
	case c == s.maxInbound:
		return ErrReplayRejected

	case c > s.maxInbound:
		if c-s.maxInbound > s.cfg.MaxForwardJump {
			return ErrCounterDesync
		}
		return nil

	default: // c < s.maxInbound
		offset := s.maxInbound - c
		if offset > s.cfg.WindowSize {
			return ErrReplayRejected
		}
		if s.window&(1<<(offset-1)) != 0 {
			return ErrReplayRejected
		}
		return nil
	}
}

// CommitInbound 提交一个已通过校验且解密成功的入站计数器
func (s *PeerState) CommitInbound(c uint32) {
	if !s.synced {
		s.synced = true
		s.maxInbound = c
		s.window = 0
		return
	}

	if c > s.maxInbound {
		shift := c - s.maxInbound
		if shift >= 64 {
			s.window = 0
		} else {
			s.window <<= shift
		}
		if shift-1 < 64 {
			// 旧的高水位线本身是已接受的
			s.window |= 1 << (shift - 1)
		}
		s.maxInbound = c
		return
	}

	s.window |= 1 << (s.maxInbound - c - 1)
}

// LastOutbound 返回最近一次使用的出站计数器（仅诊断用）
func (s *PeerState) LastOutbound() uint32 {
	return s.outbound
}

// MaxInbound 返回入站高水位线（仅诊断用）
func (s *PeerState) MaxInbound() (uint32, bool) {
	return s.maxInbound, s.synced
}
