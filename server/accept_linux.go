//go:build linux

package server

import "golang.org/x/sys/unix"

// acceptBlocking 返回阻塞模式的连接描述符
func acceptBlocking(lfd int) (int, error) {
	fd, _, err := unix.Accept4(lfd, unix.SOCK_CLOEXEC)
	return fd, err
}

// acceptNonblock 返回非阻塞模式的连接描述符
func acceptNonblock(lfd int) (int, error) {
	fd, _, err := unix.Accept4(lfd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	return fd, err
}
