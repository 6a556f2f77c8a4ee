package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig_Defaults 测试默认配置
func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ModeUDP, cfg.Transport.Mode)
	assert.Equal(t, uint16(5540), cfg.Transport.Port)
	assert.Equal(t, uint16(5543), cfg.DiscoveryPort())
	assert.True(t, cfg.Echo.Enabled)
	assert.True(t, cfg.Discovery.Enabled)
	assert.Equal(t, uint64(12344), cfg.Node.NodeID)
	assert.Equal(t, uint64(112233), cfg.Pairing.PeerNodeID)

	secret, err := cfg.PairingSecretBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte(DefaultPairingSecret), secret)
}

// TestConfig_Validate 测试配置校验
func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"未知传输模式", func(c *Config) { c.Transport.Mode = "quic" }},
		{"端口为零", func(c *Config) { c.Transport.Port = 0 }},
		{"节点未定义", func(c *Config) { c.Node.NodeID = 0 }},
		{"窗口过大", func(c *Config) { c.Counter.WindowSize = 65 }},
		{"超时非正", func(c *Config) { c.Exchange.ResponseTimeout = 0 }},
		{"对端未定义", func(c *Config) { c.Pairing.PeerNodeID = 0 }},
		{"密钥非法", func(c *Config) { c.Pairing.Secret = "0OIl" }},
		{"连接上限非法", func(c *Config) { c.Transport.TCP.MaxActiveConnections = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestFromJSON 测试 JSON 覆盖默认值
func TestFromJSON(t *testing.T) {
	data := []byte(`{
		"transport": {"mode": "tcp", "port": 6000},
		"echo": {"enabled": false},
		"exchange": {"response_timeout": "2s"}
	}`)

	cfg, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, ModeTCP, cfg.Transport.Mode)
	assert.Equal(t, uint16(6000), cfg.Transport.Port)
	assert.Equal(t, uint16(6003), cfg.DiscoveryPort())
	assert.False(t, cfg.Echo.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Exchange.ResponseTimeout.Duration())

	// 未覆盖的字段保留默认值
	assert.True(t, cfg.Discovery.Enabled)
	require.NoError(t, cfg.Validate())
}

// TestConfig_SaveLoadRoundTrip 测试配置文件读写
func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.Transport.Mode = ModeTCP
	cfg.Exchange.ResponseTimeout = Seconds(3)

	path := filepath.Join(t.TempDir(), "responder.json")
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

// TestDuration_Unmarshal 测试 Duration 的两种 JSON 形式
func TestDuration_Unmarshal(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"1m30s"`)))
	assert.Equal(t, 90*time.Second, d.Duration())

	require.NoError(t, d.UnmarshalJSON([]byte(`1000000000`)))
	assert.Equal(t, time.Second, d.Duration())

	assert.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
	assert.Error(t, d.UnmarshalJSON([]byte(`true`)))
}
