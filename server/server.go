// Package server 提供三种可互换的连接处理策略：
// immediate（单 goroutine 串行阻塞）、pooled（线程池阻塞）、reactor（事件循环非阻塞）
package server

import (
	"context"
	"errors"
	"net"
	"strconv"
)

var (
	ErrServerClosed = errors.New("server: closed")
	ErrNilHandler   = errors.New("server: nil request handler")

	// ErrAlreadyServing 同一个服务只能 Serve 一次
	ErrAlreadyServing = errors.New("server: already serving")
)

// Addr 为监听的实际地址
type Addr struct {
	Host   string
	Port   int
	Family string // IPv4 / IPv6
}

func (a Addr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// SocketServer 为三种策略的公共能力
type SocketServer interface {
	// Serve 开始监听并处理连接，直到 ctx 结束或 Close
	Serve(ctx context.Context) error
	Close() error
	Addr() Addr
}
