// Package netlib 为 TCP 请求-响应服务提供统一入口：
// 按配置选择 immediate / pooled / reactor 策略之一，并以分发处理器服务请求。
package netlib

import (
	"fmt"
	"os"
	"time"

	"github.com/legamerdc/netlib/server"
	"gopkg.in/yaml.v3"
)

// Config 为服务端配置，可由 yaml 文件加载
type Config struct {
	Strategy Strategy      `yaml:"strategy"`
	Network  string        `yaml:"network"`
	Address  string        `yaml:"address"` // 监听地址，如 ":8080"
	Backlog  int           `yaml:"backlog"`
	Timeout  time.Duration `yaml:"timeout"` // 同步策略每次读写的时限
	NoDelay  bool          `yaml:"no_delay"`

	Workers    int `yaml:"workers"`     // pooled
	QueueLimit int `yaml:"queue_limit"` // pooled

	SocketTableSize int `yaml:"socket_table_size"` // reactor
	TimerTableSize  int `yaml:"timer_table_size"`  // reactor
}

// DefaultConfig 提供一组可工作的默认值
func DefaultConfig() Config {
	d := server.DefaultConfig()
	return Config{
		Strategy:        StrategyReactor,
		Network:         d.Network,
		Address:         d.Address,
		Backlog:         d.Backlog,
		Timeout:         d.Timeout,
		NoDelay:         d.NoDelay,
		Workers:         d.Workers,
		QueueLimit:      d.QueueLimit,
		SocketTableSize: 10 * 1024,
		TimerTableSize:  1024,
	}
}

// LoadConfig 以 DefaultConfig 为基础读取 yaml 配置，文件中缺省的字段保持默认值
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("netlib: parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate 检查配置的取值范围
func (c Config) Validate() error {
	if _, err := ParseStrategy(string(c.Strategy)); err != nil {
		return err
	}
	if c.Address == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidArgument)
	}
	if c.Backlog < 0 || c.Workers < 0 || c.QueueLimit < 0 || c.Timeout < 0 {
		return fmt.Errorf("%w: negative size or timeout", ErrInvalidArgument)
	}
	if c.SocketTableSize < 0 || c.TimerTableSize < 0 {
		return fmt.Errorf("%w: negative table size", ErrInvalidArgument)
	}
	return nil
}

func (c Config) serverConfig() server.Config {
	return server.Config{
		Network:         c.Network,
		Address:         c.Address,
		Backlog:         c.Backlog,
		Timeout:         c.Timeout,
		NoDelay:         c.NoDelay,
		Workers:         c.Workers,
		QueueLimit:      c.QueueLimit,
		SocketTableSize: c.SocketTableSize,
		TimerTableSize:  c.TimerTableSize,
	}
}
