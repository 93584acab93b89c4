package codec

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"time"
)

// ConnIO 为基于 net.Conn 的 ByteIO，超时通过 deadline 实现
type ConnIO struct {
	conn         net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
	buf          []byte
}

func NewConnIO(c net.Conn, readTimeout, writeTimeout time.Duration) *ConnIO {
	return &ConnIO{conn: c, readTimeout: readTimeout, writeTimeout: writeTimeout}
}

func (c *ConnIO) ReadBytes(p []byte) (int, error) {
	if err := c.armRead(); err != nil {
		return 0, err
	}
	n, err := io.ReadFull(c.conn, p)
	return n, mapConnErr(err)
}

func (c *ConnIO) WriteBytes(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, ErrShortWrite
	}
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return 0, mapConnErr(err)
		}
	}
	n, err := c.conn.Write(p)
	return n, mapConnErr(err)
}

// ReadMessage 执行一次 Read，最多 MaxMessageSize 字节
func (c *ConnIO) ReadMessage() ([]byte, error) {
	if err := c.armRead(); err != nil {
		return nil, err
	}
	if c.buf == nil {
		c.buf = make([]byte, MaxMessageSize)
	}
	n, err := c.conn.Read(c.buf)
	if n > 0 {
		out := make([]byte, n)
		copy(out, c.buf[:n])
		return out, nil
	}
	if err == nil {
		err = io.EOF
	}
	return nil, mapConnErr(err)
}

func (c *ConnIO) WriteMessage(p []byte) (int, error) {
	return c.WriteBytes(p)
}

func (c *ConnIO) armRead() error {
	if c.readTimeout <= 0 {
		return nil
	}
	return mapConnErr(c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)))
}

func mapConnErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, io.ErrUnexpectedEOF):
		return io.EOF
	case errors.Is(err, io.ErrClosedPipe), errors.Is(err, net.ErrClosed):
		// 任一端已关闭，设置 deadline 时也会遇到
		return io.EOF
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return ErrConnReset
	}
	return err
}
