//go:build !linux && !darwin

package netlib

import (
	"context"

	"github.com/legamerdc/netlib/server"
)

// NewServer 在没有 epoll/kqueue 的平台上只校验参数
func NewServer(cfg Config, h RequestHandler, opts ...Option) (server.SocketServer, error) {
	if h == nil {
		return nil, ErrInvalidArgument
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return nil, ErrPlatformNotSupported
}

func Start(ctx context.Context, cfg Config, h RequestHandler, opts ...Option) error {
	_, err := NewServer(cfg, h, opts...)
	return err
}
