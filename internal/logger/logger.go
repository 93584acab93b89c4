// Package logger 提供 netlib 内部统一的子系统日志
//
// 基于 log/slog，级别与格式由环境变量控制：
//
//	NETLIB_LOG_LEVEL=eventloop=debug,server=warn,info
//	NETLIB_LOG_FORMAT=json
//
// 使用方式:
//
//	var log = logger.Logger("server")
//	log.Info("listening", "addr", addr)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	envLevel  = "NETLIB_LOG_LEVEL"
	envFormat = "NETLIB_LOG_FORMAT"
)

var (
	loggers sync.Map // subsystem -> *slog.Logger
	levels  sync.Map // subsystem -> *slog.LevelVar

	outputMu sync.RWMutex
	output   io.Writer = os.Stderr

	cfgOnce sync.Once
	cfg     config
)

type config struct {
	defaultLevel slog.Level
	levels       map[string]slog.Level
	json         bool
}

// Logger 返回子系统 Logger，同名多次调用返回同一实例
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}
	c := loadConfig()
	lv := new(slog.LevelVar)
	lv.Set(c.level(subsystem))
	opts := &slog.HandlerOptions{
		Level: lv,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "ts"
			}
			return a
		},
	}
	var h slog.Handler
	if c.json {
		h = slog.NewJSONHandler(writer{}, opts)
	} else {
		h = slog.NewTextHandler(writer{}, opts)
	}
	h = h.WithAttrs([]slog.Attr{slog.String("subsystem", subsystem)})

	actual, loaded := loggers.LoadOrStore(subsystem, slog.New(h))
	if !loaded {
		levels.Store(subsystem, lv)
	}
	return actual.(*slog.Logger)
}

// SetLevel 运行时调整子系统级别
func SetLevel(subsystem string, level slog.Level) {
	Logger(subsystem)
	if v, ok := levels.Load(subsystem); ok {
		v.(*slog.LevelVar).Set(level)
	}
}

// SetOutput 重定向所有子系统的输出（已创建的 Logger 同样生效）
func SetOutput(w io.Writer) {
	outputMu.Lock()
	output = w
	outputMu.Unlock()
}

// Discard 返回丢弃一切输出的 Logger，测试用
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// OrDefault 在 l 为 nil 时回落到子系统 Logger
func OrDefault(l *slog.Logger, subsystem string) *slog.Logger {
	if l != nil {
		return l
	}
	return Logger(subsystem)
}

type writer struct{}

func (writer) Write(p []byte) (int, error) {
	outputMu.RLock()
	w := output
	outputMu.RUnlock()
	return w.Write(p)
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

func loadConfig() config {
	cfgOnce.Do(func() {
		cfg = parseConfig(os.Getenv(envLevel), os.Getenv(envFormat))
	})
	return cfg
}

func (c config) level(subsystem string) slog.Level {
	if l, ok := c.levels[subsystem]; ok {
		return l
	}
	return c.defaultLevel
}

// parseConfig 解析 "sub=level,...,default" 形式的级别配置
func parseConfig(levelSpec, format string) config {
	c := config{
		defaultLevel: slog.LevelInfo,
		levels:       make(map[string]slog.Level),
		json:         strings.EqualFold(format, "json"),
	}
	for _, part := range strings.Split(levelSpec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if sub, name, ok := strings.Cut(part, "="); ok {
			if l, ok := parseLevel(name); ok {
				c.levels[strings.TrimSpace(sub)] = l
			}
			continue
		}
		if l, ok := parseLevel(part); ok {
			c.defaultLevel = l
		}
	}
	return c
}

func parseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
