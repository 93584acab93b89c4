//go:build linux || darwin

package codec

import (
	"fmt"
	"io"
	"time"

	"github.com/legamerdc/netlib/internal/netutil"
	"golang.org/x/sys/unix"
)

const (
	// DefaultMaxRetry 无超时设定时 EAGAIN 的最大重试次数
	DefaultMaxRetry = 10
	retryInterval   = 100 * time.Microsecond
)

// SocketIO 为基于原始描述符的 ByteIO
//
// 阻塞描述符的超时依赖 SO_RCVTIMEO/SO_SNDTIMEO：内核在超时后返回 EAGAIN，
// 再由重试逻辑判定为 ErrTimeout。SocketIO 不持有 fd，不负责关闭；
// 读缓冲在 Reset 之间复用。
type SocketIO struct {
	fd          int
	recvTimeout time.Duration
	sendTimeout time.Duration
	maxRetry    int
	buf         []byte
}

// NewSocketIO 绑定 fd 并把时限写入描述符；timeout <= 0 表示不设时限
func NewSocketIO(fd int, recvTimeout, sendTimeout time.Duration) (*SocketIO, error) {
	if err := ApplyTimeouts(fd, recvTimeout, sendTimeout); err != nil {
		return nil, err
	}
	return WrapSocket(fd, recvTimeout, sendTimeout), nil
}

// WrapSocket 绑定 fd，不修改描述符选项。
// 时限需已由 ApplyTimeouts 写入，否则阻塞读写不会按时返回。
func WrapSocket(fd int, recvTimeout, sendTimeout time.Duration) *SocketIO {
	return &SocketIO{
		fd:          fd,
		recvTimeout: recvTimeout,
		sendTimeout: sendTimeout,
		maxRetry:    DefaultMaxRetry,
	}
}

// ApplyTimeouts 设置 SO_RCVTIMEO/SO_SNDTIMEO，每个连接调用一次即可
func ApplyTimeouts(fd int, recvTimeout, sendTimeout time.Duration) error {
	if recvTimeout > 0 {
		if err := netutil.SetRecvTimeout(fd, recvTimeout); err != nil {
			return fmt.Errorf("codec: set recv timeout on fd %d: %w", fd, err)
		}
	}
	if sendTimeout > 0 {
		if err := netutil.SetSendTimeout(fd, sendTimeout); err != nil {
			return fmt.Errorf("codec: set send timeout on fd %d: %w", fd, err)
		}
	}
	return nil
}

// Reset 改绑到另一个描述符，保留读缓冲
func (s *SocketIO) Reset(fd int) { s.fd = fd }

// SetMaxRetry 调整无超时时的重试上限
func (s *SocketIO) SetMaxRetry(n int) { s.maxRetry = n }

func (s *SocketIO) FD() int { return s.fd }

func (s *SocketIO) ReadBytes(p []byte) (int, error) {
	got := 0
	for got < len(p) {
		n, err := s.readOnce(p[got:])
		if err != nil {
			return got, err
		}
		got += n
	}
	return got, nil
}

func (s *SocketIO) WriteBytes(p []byte) (int, error) {
	return s.writeFull(p)
}

// ReadMessage 执行一次底层读取，最多 MaxMessageSize 字节
func (s *SocketIO) ReadMessage() ([]byte, error) {
	if s.buf == nil {
		s.buf = make([]byte, MaxMessageSize)
	}
	n, err := s.readOnce(s.buf)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, s.buf[:n])
	return out, nil
}

func (s *SocketIO) WriteMessage(p []byte) (int, error) {
	return s.writeFull(p)
}

func (s *SocketIO) readOnce(p []byte) (int, error) {
	deadline := deadlineAfter(s.recvTimeout)
	for attempt := 0; ; attempt++ {
		n, err := unix.Read(s.fd, p)
		if err == nil {
			if n <= 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		if rerr := s.retry(err, attempt, deadline); rerr != nil {
			return 0, rerr
		}
	}
}

func (s *SocketIO) writeFull(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, ErrShortWrite
	}
	deadline := deadlineAfter(s.sendTimeout)
	sent := 0
	for attempt := 0; sent < len(p); attempt++ {
		n, err := unix.Write(s.fd, p[sent:])
		if err == nil {
			if n <= 0 {
				return sent, ErrShortWrite
			}
			sent += n
			continue
		}
		if rerr := s.retry(err, attempt, deadline); rerr != nil {
			return sent, rerr
		}
	}
	return sent, nil
}

// retry 返回 nil 表示可以再试一次
func (s *SocketIO) retry(err error, attempt int, deadline time.Time) error {
	switch err {
	case unix.EINTR:
		return nil
	case unix.EAGAIN:
		if !deadline.IsZero() {
			if !time.Now().Before(deadline) {
				return ErrTimeout
			}
		} else if attempt >= s.maxRetry {
			return ErrWouldBlock
		}
		time.Sleep(retryInterval)
		return nil
	case unix.ECONNRESET, unix.EPIPE:
		return ErrConnReset
	}
	return err
}

func deadlineAfter(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}
