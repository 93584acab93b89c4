//go:build linux || darwin

package netutil

import (
	"errors"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

func SetNonblock(fd int, nonblock bool) error {
	return unix.SetNonblock(fd, nonblock)
}

func SetReuseAddr(fd int, enable bool) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, boolInt(enable))
}

func SetNoDelay(fd int, enable bool) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, boolInt(enable))
}

// SetRecvTimeout 设置 SO_RCVTIMEO，阻塞读超时后返回 EAGAIN
func SetRecvTimeout(fd int, d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

// SetSendTimeout 设置 SO_SNDTIMEO
func SetSendTimeout(fd int, d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv)
}

// Sockname 返回 fd 绑定的本地地址
func Sockname(fd int) (*net.TCPAddr, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, err
	}
	return ToTCPAddr(sa)
}

// ToTCPAddr 将 unix.Sockaddr 转换为 net.TCPAddr
func ToTCPAddr(sa unix.Sockaddr) (*net.TCPAddr, error) {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(append([]byte(nil), a.Addr[:]...)), Port: a.Port}, nil
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(append([]byte(nil), a.Addr[:]...)), Port: a.Port}, nil
	}
	return nil, errors.New("netutil: unsupported address family")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
