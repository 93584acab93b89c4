//go:build linux || darwin

package server

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/legamerdc/netlib/internal/logger"
	"github.com/legamerdc/netlib/internal/netutil"
	"golang.org/x/sys/unix"
)

// listener 持有非阻塞的监听描述符：构造时完成 bind 与 listen，
// 构造返回后即可接受连接（排入 backlog），Serve 开始取出。
type listener struct {
	fd      int
	addr    Addr
	serving atomic.Bool
	closed  atomic.Bool
	once    sync.Once
	log     *slog.Logger
}

func openListener(cfg Config) (*listener, error) {
	tcpAddr, err := net.ResolveTCPAddr(cfg.Network, cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("server: resolve %q: %w", cfg.Address, err)
	}
	fam, sa := sockaddr(cfg.Network, tcpAddr)
	fd, err := unix.Socket(fam, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("server: socket: %w", err)
	}
	unix.CloseOnExec(fd)
	if err := netutil.SetReuseAddr(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("server: reuseaddr: %w", err)
	}
	if err := netutil.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("server: nonblock: %w", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("server: bind %s: %w", tcpAddr, err)
	}
	if err := unix.Listen(fd, cfg.Backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("server: listen %s: %w", tcpAddr, err)
	}
	bound, err := netutil.Sockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("server: getsockname: %w", err)
	}
	family := "IPv4"
	if fam == unix.AF_INET6 {
		family = "IPv6"
	}
	return &listener{
		fd:   fd,
		addr: Addr{Host: bound.IP.String(), Port: bound.Port, Family: family},
		log:  logger.OrDefault(cfg.Logger, "server"),
	}, nil
}

func sockaddr(network string, addr *net.TCPAddr) (int, unix.Sockaddr) {
	ip4 := addr.IP.To4()
	if network != "tcp6" && (ip4 != nil || addr.IP == nil) {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		if ip4 != nil {
			copy(sa.Addr[:], ip4)
		}
		return unix.AF_INET, sa
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	if addr.IP != nil {
		copy(sa.Addr[:], addr.IP.To16())
	}
	return unix.AF_INET6, sa
}

func (l *listener) Addr() Addr { return l.addr }

// start 进入服务态，只能成功一次；已关闭时释放描述符
func (l *listener) start() error {
	if !l.serving.CompareAndSwap(false, true) {
		return ErrAlreadyServing
	}
	if l.closed.Load() {
		l.closeFD()
		return ErrServerClosed
	}
	return nil
}

// Close 标记关闭；服务中由接收循环负责释放描述符
func (l *listener) Close() error {
	l.closed.Store(true)
	if !l.serving.Load() {
		return l.closeFD()
	}
	return nil
}

func (l *listener) closeFD() error {
	var err error
	l.once.Do(func() { err = unix.Close(l.fd) })
	return err
}
