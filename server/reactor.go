//go:build linux || darwin

package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/legamerdc/netlib/eventloop"
	"github.com/legamerdc/netlib/handler"
	"github.com/legamerdc/netlib/internal/logger"
	"github.com/legamerdc/netlib/poller"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// ReactorServer 在一个事件循环 goroutine 上以非阻塞方式服务全部连接。
// 连接表只在循环 goroutine 上读写。
type ReactorServer struct {
	cfg   Config
	ln    *listener
	h     *handler.Handler
	el    *eventloop.EventLoop
	owned bool
	log   *slog.Logger
	conns map[int]struct{}
	done  chan struct{}
}

var _ SocketServer = (*ReactorServer)(nil)

// NewReactor 创建事件循环策略的服务；el 为空时自建多路复用器与事件循环，
// 结束时一并关闭。
func NewReactor(cfg Config, rh handler.RequestHandler, el *eventloop.EventLoop) (*ReactorServer, error) {
	if rh == nil {
		return nil, ErrNilHandler
	}
	cfg = cfg.withDefaults()
	ln, err := openListener(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.OrDefault(cfg.Logger, "server")
	s := &ReactorServer{
		cfg:   cfg,
		ln:    ln,
		el:    el,
		log:   log,
		conns: make(map[int]struct{}),
		done:  make(chan struct{}),
	}
	if s.el == nil {
		mux, err := poller.New()
		if err != nil {
			ln.closeFD()
			return nil, err
		}
		opts := []eventloop.Option{eventloop.WithLogger(cfg.Logger)}
		if cfg.SocketTableSize > 0 {
			opts = append(opts, eventloop.WithSocketTableSize(cfg.SocketTableSize))
		}
		if cfg.TimerTableSize > 0 {
			opts = append(opts, eventloop.WithTimerTableSize(cfg.TimerTableSize))
		}
		s.el = eventloop.New(mux, opts...)
		s.owned = true
	}
	s.h = newHandler(rh, cfg, false, s.released)
	return s, nil
}

func (s *ReactorServer) Addr() Addr { return s.ln.Addr() }

// EventLoop 返回所用的事件循环，可在 Serve 前注册定时器
func (s *ReactorServer) EventLoop() *eventloop.EventLoop { return s.el }

// Conns 返回当前连接数，只应在循环 goroutine 上调用
func (s *ReactorServer) Conns() int { return len(s.conns) }

func (s *ReactorServer) Serve(ctx context.Context) (err error) {
	if err := s.ln.start(); err != nil {
		if !errors.Is(err, ErrAlreadyServing) {
			close(s.done)
			s.closeMux()
		}
		return err
	}
	defer close(s.done)
	s.el.Reset()
	if err := s.el.AddSocketEvent(s.ln.fd, poller.EventRead, s.onAccept, nil); err != nil {
		return multierr.Combine(err, s.ln.closeFD(), s.closeMux())
	}
	stop := context.AfterFunc(ctx, s.el.Stop)
	defer stop()
	if s.ln.closed.Load() {
		s.el.Stop()
	}

	s.log.Info("serving", "strategy", "reactor", "addr", s.ln.Addr())
	s.el.Main()

	if derr := s.el.DeleteSocketEvent(s.ln.fd); derr != nil && !errors.Is(derr, eventloop.ErrNotRegistered) {
		err = multierr.Append(err, derr)
	}
	err = multierr.Append(err, s.ln.closeFD())
	for fd := range s.conns {
		s.h.CloseConn(s.el, fd)
	}
	return multierr.Append(err, s.closeMux())
}

// onAccept 接收所有已排队的连接并注册读事件
func (s *ReactorServer) onAccept(el *eventloop.EventLoop, lfd int) {
	for {
		fd, err := acceptNonblock(lfd)
		if err != nil {
			switch err {
			case unix.EAGAIN, unix.EINTR, unix.ECONNABORTED:
			default:
				s.log.Warn("accept failed", "err", err)
			}
			return
		}
		prepare(fd, s.cfg, s.log)
		if err := el.AddSocketEvent(fd, poller.EventRead, s.h.AsyncRecvRequest, nil); err != nil {
			s.log.Warn("register connection failed", "fd", fd, "err", err)
			closeAbandoned(fd, s.cfg.Metrics)
			continue
		}
		s.conns[fd] = struct{}{}
	}
}

func (s *ReactorServer) released(fd int) {
	delete(s.conns, fd)
	s.cfg.Metrics.released()
}

func (s *ReactorServer) closeMux() error {
	if !s.owned {
		return nil
	}
	return s.el.Multiplexer().Close()
}

// Close 停止事件循环并等待 Serve 完成清理；不能在循环回调中调用
func (s *ReactorServer) Close() error {
	if err := s.ln.Close(); err != nil {
		return err
	}
	if s.ln.serving.Load() {
		s.el.Stop()
		<-s.done
		return nil
	}
	return s.closeMux()
}
