package server

import (
	"log/slog"
	"runtime"
	"time"
)

type Config struct {
	Network string // tcp / tcp4 / tcp6
	Address string // host:port，port 为 0 时由系统分配
	Backlog int
	// Timeout 为同步策略下每次读、每次写各自的时限
	Timeout time.Duration
	NoDelay bool

	// 仅 pooled 策略使用
	Workers    int
	QueueLimit int

	// 仅 reactor 策略自建事件循环时使用，<= 0 取事件循环默认值
	SocketTableSize int
	TimerTableSize  int

	Metrics *Metrics
	Logger  *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Network:    "tcp",
		Address:    ":0",
		Backlog:    1024,
		Timeout:    5 * time.Second,
		NoDelay:    true,
		Workers:    runtime.NumCPU(),
		QueueLimit: 1024,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Network == "" {
		c.Network = d.Network
	}
	if c.Backlog <= 0 {
		c.Backlog = d.Backlog
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.QueueLimit <= 0 {
		c.QueueLimit = d.QueueLimit
	}
	return c
}
