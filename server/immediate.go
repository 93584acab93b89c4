//go:build linux || darwin

package server

import (
	"context"
	"log/slog"

	"github.com/legamerdc/netlib/handler"
	"github.com/legamerdc/netlib/internal/logger"
)

// ImmediateServer 在接收 goroutine 上串行服务每个连接，
// 当前连接结束前不会接收下一个。
type ImmediateServer struct {
	cfg Config
	ln  *listener
	h   *handler.Handler
	log *slog.Logger
}

var _ SocketServer = (*ImmediateServer)(nil)

func NewImmediate(cfg Config, rh handler.RequestHandler) (*ImmediateServer, error) {
	if rh == nil {
		return nil, ErrNilHandler
	}
	cfg = cfg.withDefaults()
	ln, err := openListener(cfg)
	if err != nil {
		return nil, err
	}
	return &ImmediateServer{
		cfg: cfg,
		ln:  ln,
		h:   newHandler(rh, cfg, true, nil),
		log: logger.OrDefault(cfg.Logger, "server"),
	}, nil
}

func (s *ImmediateServer) Addr() Addr { return s.ln.Addr() }

func (s *ImmediateServer) Serve(ctx context.Context) error {
	if err := s.ln.start(); err != nil {
		return err
	}
	s.log.Info("serving", "strategy", "immediate", "addr", s.ln.Addr())
	return s.ln.acceptLoop(ctx, func(fd int) {
		prepare(fd, s.cfg, s.log)
		serveConn(s.h, fd, s.cfg.Metrics, s.log)
	})
}

// Close 停止接收；正在服务的连接在其结束后退出
func (s *ImmediateServer) Close() error { return s.ln.Close() }
