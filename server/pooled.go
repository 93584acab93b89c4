//go:build linux || darwin

package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/legamerdc/netlib/handler"
	"github.com/legamerdc/netlib/internal/logger"
	"github.com/legamerdc/netlib/pool"
)

// PooledServer 将每个连接作为一个任务提交到线程池，
// worker 在任务内完成该连接的整个阻塞处理循环。
type PooledServer struct {
	cfg   Config
	ln    *listener
	h     *handler.Handler
	tp    *pool.ThreadPool
	owned bool
	log   *slog.Logger

	mu     sync.Mutex
	queued map[int]struct{}
}

var _ SocketServer = (*PooledServer)(nil)

// NewPooled 创建线程池策略的服务；tp 为空时按配置自建并在结束时 Join
func NewPooled(cfg Config, rh handler.RequestHandler, tp *pool.ThreadPool) (*PooledServer, error) {
	if rh == nil {
		return nil, ErrNilHandler
	}
	cfg = cfg.withDefaults()
	ln, err := openListener(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.OrDefault(cfg.Logger, "server")
	s := &PooledServer{
		cfg:    cfg,
		ln:     ln,
		h:      newHandler(rh, cfg, true, nil),
		tp:     tp,
		log:    log,
		queued: make(map[int]struct{}),
	}
	if s.tp == nil {
		s.tp = pool.NewThreadPool(cfg.Workers, cfg.QueueLimit, pool.WithLogger(cfg.Logger))
		s.owned = true
	}
	return s, nil
}

func (s *PooledServer) Addr() Addr { return s.ln.Addr() }

func (s *PooledServer) Pool() *pool.ThreadPool { return s.tp }

func (s *PooledServer) Serve(ctx context.Context) error {
	if err := s.ln.start(); err != nil {
		if s.owned && !errors.Is(err, ErrAlreadyServing) {
			s.tp.Join()
		}
		return err
	}
	s.log.Info("serving", "strategy", "pooled", "addr", s.ln.Addr(), "workers", s.tp.Workers())
	err := s.ln.acceptLoop(ctx, s.submit)

	if s.owned {
		s.tp.Join()
		s.tp.Abandoned()
	}
	// 仍在队列里的连接不会再被服务
	s.mu.Lock()
	pending := s.queued
	s.queued = make(map[int]struct{})
	s.mu.Unlock()
	for fd := range pending {
		closeAbandoned(fd, s.cfg.Metrics)
	}
	if len(pending) > 0 {
		s.log.Warn("closed queued connections", "count", len(pending))
	}
	return err
}

func (s *PooledServer) submit(fd int) {
	prepare(fd, s.cfg, s.log)
	s.mu.Lock()
	s.queued[fd] = struct{}{}
	s.mu.Unlock()

	err := s.tp.AddTask(func() {
		if !s.take(fd) {
			return
		}
		serveConn(s.h, fd, s.cfg.Metrics, s.log)
	})
	if err != nil && s.take(fd) {
		closeAbandoned(fd, s.cfg.Metrics)
	}
}

// take 取走排队中的 fd，已被他处取走时返回 false
func (s *PooledServer) take(fd int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queued[fd]; !ok {
		return false
	}
	delete(s.queued, fd)
	return true
}

// Close 停止接收；worker 上的连接在其结束后退出
func (s *PooledServer) Close() error {
	err := s.ln.Close()
	if s.owned && !s.ln.serving.Load() {
		s.tp.Join()
	}
	return err
}
