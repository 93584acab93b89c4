package codec

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConnIO_Message 测试 net.Conn 上的消息与数值往返
func TestConnIO_Message(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	w := NewConnIO(a, time.Second, time.Second)
	r := NewConnIO(b, time.Second, time.Second)

	go func() {
		_, _ = w.WriteMessage([]byte("hello"))
		_ = WriteUint16(w, 0xBEEF)
	}()

	msg, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), msg)

	v, err := ReadUint16(r)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xBEEF), v)
}

// TestConnIO_Errors 测试超时与对端关闭的错误映射
func TestConnIO_Errors(t *testing.T) {
	a, b := net.Pipe()
	r := NewConnIO(b, 20*time.Millisecond, 0)

	_, err := r.ReadMessage()
	require.ErrorIs(t, err, ErrTimeout)

	require.NoError(t, a.Close())
	_, err = r.ReadMessage()
	assert.ErrorIs(t, err, io.EOF)
	_ = b.Close()
}

// TestConnIO_ClosedLocally 测试本端关闭后读写均映射为 io.EOF
func TestConnIO_ClosedLocally(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	c := NewConnIO(b, 0, time.Second)
	require.NoError(t, b.Close())

	_, err := c.ReadMessage()
	assert.ErrorIs(t, err, io.EOF)
	_, err = c.WriteMessage([]byte("x"))
	assert.ErrorIs(t, err, io.EOF)
	_, err = c.ReadBytes(make([]byte, 2))
	assert.ErrorIs(t, err, io.EOF)
}
