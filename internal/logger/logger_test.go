package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseConfig 测试级别配置解析
func TestParseConfig(t *testing.T) {
	c := parseConfig("eventloop=debug, server=warn,error", "json")
	assert.Equal(t, slog.LevelDebug, c.level("eventloop"))
	assert.Equal(t, slog.LevelWarn, c.level("server"))
	assert.Equal(t, slog.LevelError, c.level("pool"))
	assert.True(t, c.json)

	c = parseConfig("", "")
	assert.Equal(t, slog.LevelInfo, c.level("any"))
	assert.False(t, c.json)

	c = parseConfig("bogus,server=nope", "text")
	assert.Equal(t, slog.LevelInfo, c.level("server"))
}

// TestLogger_Cached 测试同名子系统复用实例并带 subsystem 属性
func TestLogger_Cached(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	l := Logger("logger-test")
	require.Same(t, l, Logger("logger-test"))

	SetLevel("logger-test", slog.LevelDebug)
	l.Debug("hello", "k", 1)
	assert.Contains(t, buf.String(), "subsystem=logger-test")
	assert.Contains(t, buf.String(), "msg=hello")

	SetLevel("logger-test", slog.LevelError)
	buf.Reset()
	l.Info("dropped")
	assert.Empty(t, buf.String())
}

// TestDiscard 测试丢弃 Logger
func TestDiscard(t *testing.T) {
	l := Discard()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
	assert.Same(t, l, OrDefault(l, "x"))
	assert.NotNil(t, OrDefault(nil, "x"))
}
