//go:build linux || darwin

package server

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

const (
	// acceptWait 单次等待新连接的上限，用于及时观察关闭与 ctx
	acceptWait = 100 * time.Millisecond
	// acceptErrorBackoff 描述符耗尽等错误后的停顿
	acceptErrorBackoff = 10 * time.Millisecond
)

// acceptLoop 为阻塞策略的接收循环：等待可读后 accept，交给 onConn 处理，
// 返回时关闭监听描述符。
func (l *listener) acceptLoop(ctx context.Context, onConn func(fd int)) (err error) {
	defer func() { err = multierr.Append(err, l.closeFD()) }()

	pfd := []unix.PollFd{{Fd: int32(l.fd), Events: unix.POLLIN}}
	for !l.closed.Load() && ctx.Err() == nil {
		n, perr := unix.Poll(pfd, int(acceptWait/time.Millisecond))
		if perr != nil {
			if perr == unix.EINTR {
				continue
			}
			return perr
		}
		if n == 0 {
			continue
		}
		fd, aerr := acceptBlocking(l.fd)
		if aerr != nil {
			switch aerr {
			case unix.EAGAIN, unix.EINTR, unix.ECONNABORTED:
			default:
				l.log.Warn("accept failed", "err", aerr)
				time.Sleep(acceptErrorBackoff)
			}
			continue
		}
		onConn(fd)
	}
	return nil
}
