//go:build linux || darwin

package poller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func newMux(t *testing.T) Multiplexer {
	t.Helper()
	m, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

// TestMultiplexer_ReadWrite 测试读写兴趣的注册、修改与注销
func TestMultiplexer_ReadWrite(t *testing.T) {
	m := newMux(t)
	a, b := newPair(t)
	fired := make([]FiredEvent, 16)

	require.NoError(t, m.RegisterEvent(b, EventRead))
	n, err := m.PollEvent(fired, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = unix.Write(a, []byte("x"))
	require.NoError(t, err)
	n, err = m.PollEvent(fired, 1000)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, b, fired[0].FD)
	assert.Equal(t, EventRead, fired[0].Mask&EventRead)

	// 水平触发：未读走的数据再次上报
	n, err = m.PollEvent(fired, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, m.ModifyEvent(b, EventRead|EventWrite))
	n, err = m.PollEvent(fired, 1000)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, EventRead|EventWrite, fired[0].Mask)

	require.NoError(t, m.UnregisterEvent(b))
	n, err = m.PollEvent(fired, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// TestMultiplexer_InvalidMask 测试空兴趣位被拒绝
func TestMultiplexer_InvalidMask(t *testing.T) {
	m := newMux(t)
	_, b := newPair(t)
	assert.ErrorIs(t, m.RegisterEvent(b, EventNone), ErrInvalidMask)
	assert.ErrorIs(t, m.ModifyEvent(b, Mask(8)), ErrInvalidMask)
}

// TestMultiplexer_Wake 测试 Wake 打断无限等待
func TestMultiplexer_Wake(t *testing.T) {
	m := newMux(t)
	done := make(chan int, 1)
	go func() {
		n, _ := m.PollEvent(make([]FiredEvent, 4), -1)
		done <- n
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, m.Wake())

	select {
	case n := <-done:
		assert.Zero(t, n)
	case <-time.After(2 * time.Second):
		t.Fatal("poll not woken")
	}
}

// TestMultiplexer_Closed 测试关闭后轮询返回 ErrClosed
func TestMultiplexer_Closed(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	_, err = m.PollEvent(make([]FiredEvent, 1), 0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Wake(), ErrClosed)
}

func TestMaskString(t *testing.T) {
	assert.Equal(t, "read|write", (EventRead | EventWrite).String())
	assert.Equal(t, "none", EventNone.String())
	assert.Equal(t, "invalid", Mask(4).String())
}
