// Package handler 定义请求处理能力及其同步、事件循环两套调用面
package handler

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/legamerdc/netlib/internal/logger"
)

// ErrEmptyResponse 处理结果为空，连接随之关闭
var ErrEmptyResponse = errors.New("handler: empty response")

// RequestHandler 为业务处理能力：一条请求进，一条响应出。
// 返回空响应表示丢弃该请求，连接将被关闭。
type RequestHandler interface {
	Process(request []byte) []byte
}

// Func 将普通函数适配为 RequestHandler
type Func func(request []byte) []byte

func (f Func) Process(request []byte) []byte { return f(request) }

// Hooks 为连接生命周期回调，均可为空
type Hooks struct {
	// OnRequest 在读到一条请求后调用
	OnRequest func(fd int)
	// OnClose 在描述符被关闭后调用
	OnClose func(fd int)
}

// Handler 将 RequestHandler 与收发策略组合
type Handler struct {
	rh      RequestHandler
	timeout time.Duration
	hooks   Hooks
	log     *slog.Logger

	// 同步面可能被多个 worker 并发调用
	syncIO sync.Pool
	loopIO ioSlot
}

type Option func(*Handler)

// WithTimeout 同步读写各自的时限，<= 0 表示不限
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

func WithHooks(hooks Hooks) Option {
	return func(h *Handler) { h.hooks = hooks }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

func New(rh RequestHandler, opts ...Option) *Handler {
	h := &Handler{rh: rh, log: logger.Logger("handler")}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Process 调用业务处理
func (h *Handler) Process(request []byte) []byte {
	return h.rh.Process(request)
}

func (h *Handler) Timeout() time.Duration { return h.timeout }

func (h *Handler) requested(fd int) {
	if h.hooks.OnRequest != nil {
		h.hooks.OnRequest(fd)
	}
}

func (h *Handler) closed(fd int) {
	if h.hooks.OnClose != nil {
		h.hooks.OnClose(fd)
	}
}
