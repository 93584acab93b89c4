//go:build linux || darwin

package netlib

import (
	"context"

	"github.com/legamerdc/netlib/internal/logger"
	"github.com/legamerdc/netlib/server"
)

// NewServer 按 cfg.Strategy 构造未启动的服务
func NewServer(cfg Config, h RequestHandler, opts ...Option) (server.SocketServer, error) {
	if h == nil {
		return nil, ErrInvalidArgument
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	sc := cfg.serverConfig()
	sc.Logger = o.log
	if o.reg != nil {
		m, err := server.NewMetrics(o.reg, cfg.Strategy.String())
		if err != nil {
			return nil, err
		}
		sc.Metrics = m
	}

	switch cfg.Strategy {
	case StrategyImmediate:
		return server.NewImmediate(sc, h)
	case StrategyPooled:
		return server.NewPooled(sc, h, o.tp)
	case StrategyReactor:
		return server.NewReactor(sc, h, o.el)
	}
	return nil, ErrUnknownStrategy
}

// Start 构造服务并阻塞服务直到 ctx 结束
func Start(ctx context.Context, cfg Config, h RequestHandler, opts ...Option) error {
	s, err := NewServer(cfg, h, opts...)
	if err != nil {
		return err
	}
	logger.OrDefault(newOptions(opts).log, "netlib").Info("starting", "strategy", cfg.Strategy, "addr", s.Addr())
	return s.Serve(ctx)
}
