//go:build linux || darwin

package server

import (
	"errors"
	"io"
	"log/slog"

	"github.com/legamerdc/netlib/codec"
	"github.com/legamerdc/netlib/handler"
	"github.com/legamerdc/netlib/internal/netutil"
	"golang.org/x/sys/unix"
)

// newHandler 以配置中的超时与指标包装业务处理
func newHandler(rh handler.RequestHandler, cfg Config, timeout bool, onClose func(fd int)) *handler.Handler {
	hooks := handler.Hooks{OnRequest: func(int) { cfg.Metrics.request() }, OnClose: onClose}
	opts := []handler.Option{handler.WithHooks(hooks), handler.WithLogger(cfg.Logger)}
	if timeout {
		opts = append(opts, handler.WithTimeout(cfg.Timeout))
	}
	return handler.New(rh, opts...)
}

// prepare 对新连接应用套接字选项并计数；选项失败不影响服务，只记录
func prepare(fd int, cfg Config, log *slog.Logger) {
	if cfg.NoDelay {
		if err := netutil.SetNoDelay(fd, true); err != nil {
			log.Warn("set nodelay failed", "fd", fd, "err", err)
		}
	}
	cfg.Metrics.opened()
}

// serveConn 在当前 goroutine 上循环 读->处理->写，任一步失败即关闭连接
func serveConn(h *handler.Handler, fd int, m *Metrics, log *slog.Logger) {
	state := StateAccepted
	var err error
	defer func() {
		if cerr := unix.Close(fd); cerr != nil {
			log.Warn("close failed", "fd", fd, "err", cerr)
		}
		m.released()
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, codec.ErrConnReset):
			log.Debug("peer closed", "fd", fd, "state", state)
		case errors.Is(err, handler.ErrEmptyResponse):
			log.Debug("no response, closing", "fd", fd)
		default:
			log.Debug("connection closed", "fd", fd, "state", state, "err", err)
		}
	}()

	if err = h.PrepareConn(fd); err != nil {
		log.Warn("set timeouts failed", "fd", fd, "err", err)
		return
	}
	for {
		state = StateReading
		var req []byte
		if req, err = h.SyncRecvRequest(fd); err != nil {
			return
		}
		state = StateProcessing
		resp := h.Process(req)
		state = StateWriting
		if err = h.SyncSendResponse(fd, resp); err != nil {
			return
		}
	}
}

// closeAbandoned 关闭尚未被处理的连接
func closeAbandoned(fd int, m *Metrics) {
	unix.Close(fd)
	m.released()
}
