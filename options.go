package netlib

import (
	"log/slog"

	"github.com/legamerdc/netlib/eventloop"
	"github.com/legamerdc/netlib/pool"
	"github.com/prometheus/client_golang/prometheus"
)

type Option func(*options)

type options struct {
	reg prometheus.Registerer
	log *slog.Logger
	tp  *pool.ThreadPool
	el  *eventloop.EventLoop
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithRegisterer 启用连接与请求指标并注册到 reg
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.reg = reg }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithThreadPool 为 pooled 策略指定共享线程池，服务结束时不会 Join 它
func WithThreadPool(tp *pool.ThreadPool) Option {
	return func(o *options) { o.tp = tp }
}

// WithEventLoop 为 reactor 策略指定事件循环，服务结束时不会关闭其多路复用器
func WithEventLoop(el *eventloop.EventLoop) Option {
	return func(o *options) { o.el = el }
}
