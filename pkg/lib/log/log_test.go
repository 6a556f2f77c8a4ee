package log

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseLevel 测试日志级别解析
func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, c := range cases {
		got, err := ParseLevel(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

// TestLazyLogger 测试组件级 logger 输出
func TestLazyLogger(t *testing.T) {
	var buf bytes.Buffer
	SetOutputWithLevel(&buf, slog.LevelDebug)
	defer SetOutput(os.Stderr)

	logger := Logger("secmsg/test")
	logger.Info("hello", "key", "value")

	out := buf.String()
	assert.Contains(t, out, "component=secmsg/test")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "key=value")

	// Debug 级别在 Debug handler 下可见
	buf.Reset()
	logger.Debug("low level detail")
	assert.Contains(t, buf.String(), "low level detail")
}
