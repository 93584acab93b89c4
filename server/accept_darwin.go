//go:build darwin

package server

import "golang.org/x/sys/unix"

// acceptBlocking 返回阻塞模式的连接描述符（darwin 上新连接继承监听端的 O_NONBLOCK）
func acceptBlocking(lfd int) (int, error) {
	return accept(lfd, false)
}

func acceptNonblock(lfd int) (int, error) {
	return accept(lfd, true)
}

func accept(lfd int, nonblock bool) (int, error) {
	fd, _, err := unix.Accept(lfd)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, nonblock); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}
