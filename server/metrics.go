package server

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 为连接与请求计数，nil 时所有记录均为空操作
type Metrics struct {
	accepted prometheus.Counter
	closed   prometheus.Counter
	active   prometheus.Gauge
	requests prometheus.Counter
}

// NewMetrics 创建带 strategy 标签的指标并注册到 reg（可为空）。
// 同名指标已注册时复用已有的收集器。
func NewMetrics(reg prometheus.Registerer, strategy string) (*Metrics, error) {
	labels := prometheus.Labels{"strategy": strategy}
	m := &Metrics{
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netlib", Name: "connections_accepted_total",
			Help: "Connections accepted.", ConstLabels: labels,
		}),
		closed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netlib", Name: "connections_closed_total",
			Help: "Connections closed.", ConstLabels: labels,
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "netlib", Name: "connections_active",
			Help: "Connections currently open.", ConstLabels: labels,
		}),
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netlib", Name: "requests_total",
			Help: "Requests read from connections.", ConstLabels: labels,
		}),
	}
	if reg == nil {
		return m, nil
	}
	var err error
	if m.accepted, err = register(reg, m.accepted); err != nil {
		return nil, err
	}
	if m.closed, err = register(reg, m.closed); err != nil {
		return nil, err
	}
	if m.active, err = register(reg, m.active); err != nil {
		return nil, err
	}
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) opened() {
	if m == nil {
		return
	}
	m.accepted.Inc()
	m.active.Inc()
}

func (m *Metrics) released() {
	if m == nil {
		return
	}
	m.closed.Inc()
	m.active.Dec()
}

func (m *Metrics) request() {
	if m == nil {
		return
	}
	m.requests.Inc()
}
