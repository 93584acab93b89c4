package eventloop

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/legamerdc/netlib/internal/logger"
	"github.com/legamerdc/netlib/poller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMux 记录登记情况并按脚本返回就绪事件
type fakeMux struct {
	masks    map[int]poller.Mask
	pending  [][]poller.FiredEvent
	timeouts []int
	woken    int
	failMod  error
	failPoll error
}

func newFakeMux() *fakeMux {
	return &fakeMux{masks: make(map[int]poller.Mask)}
}

func (m *fakeMux) RegisterEvent(fd int, mask poller.Mask) error {
	if _, ok := m.masks[fd]; ok {
		return errors.New("fake: exists")
	}
	m.masks[fd] = mask
	return nil
}

func (m *fakeMux) UnregisterEvent(fd int) error {
	if _, ok := m.masks[fd]; !ok {
		return errors.New("fake: missing")
	}
	delete(m.masks, fd)
	return nil
}

func (m *fakeMux) ModifyEvent(fd int, mask poller.Mask) error {
	if m.failMod != nil {
		return m.failMod
	}
	m.masks[fd] = mask
	return nil
}

func (m *fakeMux) PollEvent(fired []poller.FiredEvent, timeoutMs int) (int, error) {
	m.timeouts = append(m.timeouts, timeoutMs)
	if m.failPoll != nil {
		return 0, m.failPoll
	}
	if len(m.pending) == 0 {
		return 0, nil
	}
	n := copy(fired, m.pending[0])
	m.pending = m.pending[1:]
	return n, nil
}

func (m *fakeMux) Wake() error  { m.woken++; return nil }
func (m *fakeMux) Close() error { return nil }

func newLoop(t *testing.T, opts ...Option) (*EventLoop, *fakeMux, *clock.Mock) {
	t.Helper()
	mux := newFakeMux()
	mock := clock.NewMock()
	opts = append([]Option{WithClock(mock), WithLogger(logger.Discard()), WithSocketTableSize(64)}, opts...)
	return New(mux, opts...), mux, mock
}

func nopCb(*EventLoop, int) {}

// TestSocketEvent_Registration 测试登记表与多路复用器保持一致
func TestSocketEvent_Registration(t *testing.T) {
	el, mux, _ := newLoop(t)

	assert.ErrorIs(t, el.AddSocketEvent(3, poller.EventNone, nopCb, nil), ErrInvalidMask)
	assert.ErrorIs(t, el.AddSocketEvent(3, poller.EventRead, nil, nil), ErrMissingCallback)
	assert.ErrorIs(t, el.AddSocketEvent(3, poller.EventWrite, nopCb, nil), ErrMissingCallback)
	assert.ErrorIs(t, el.AddSocketEvent(64, poller.EventRead, nopCb, nil), ErrFDOutOfRange)
	assert.ErrorIs(t, el.AddSocketEvent(-1, poller.EventRead, nopCb, nil), ErrFDOutOfRange)

	require.NoError(t, el.AddSocketEvent(3, poller.EventRead, nopCb, nil))
	assert.ErrorIs(t, el.AddSocketEvent(3, poller.EventRead, nopCb, nil), ErrAlreadyRegistered)
	assert.Equal(t, poller.EventRead, el.SocketMask(3))
	assert.Equal(t, poller.EventRead, mux.masks[3])
	assert.Equal(t, 1, el.Registered())

	require.NoError(t, el.ModifySocketWriteEvent(3, nopCb))
	assert.Equal(t, poller.EventRead|poller.EventWrite, el.SocketMask(3))
	assert.Equal(t, poller.EventRead|poller.EventWrite, mux.masks[3])

	require.NoError(t, el.ModifySocketReadEvent(3, nil))
	assert.Equal(t, poller.EventWrite, el.SocketMask(3))
	assert.Equal(t, poller.EventWrite, mux.masks[3])

	// 清空最后一位不允许，应改用 DeleteSocketEvent
	assert.ErrorIs(t, el.ModifySocketWriteEvent(3, nil), ErrInvalidMask)
	assert.Equal(t, poller.EventWrite, el.SocketMask(3))

	assert.ErrorIs(t, el.ModifySocketEvent(4, poller.EventRead, nopCb, nil), ErrNotRegistered)
	assert.ErrorIs(t, el.ModifySocketReadEvent(4, nopCb), ErrNotRegistered)

	require.NoError(t, el.DeleteSocketEvent(3))
	assert.ErrorIs(t, el.DeleteSocketEvent(3), ErrNotRegistered)
	assert.Equal(t, poller.EventNone, el.SocketMask(3))
	assert.Empty(t, mux.masks)
	assert.Zero(t, el.Registered())
}

// TestSocketEvent_ModifyFailureKeepsState 测试多路复用器拒绝修改时登记表不变
func TestSocketEvent_ModifyFailureKeepsState(t *testing.T) {
	el, mux, _ := newLoop(t)
	require.NoError(t, el.AddSocketEvent(5, poller.EventRead, nopCb, nil))
	mux.failMod = errors.New("boom")
	assert.Error(t, el.ModifySocketWriteEvent(5, nopCb))
	assert.Equal(t, poller.EventRead, el.SocketMask(5))
}

// TestDispatch_OneCallbackPerIteration 测试每次迭代每个描述符至多一个回调，读优先
func TestDispatch_OneCallbackPerIteration(t *testing.T) {
	el, mux, _ := newLoop(t)
	var calls []string
	rec := func(tag string) SocketCallback {
		return func(_ *EventLoop, fd int) { calls = append(calls, tag) }
	}

	require.NoError(t, el.AddSocketEvent(1, poller.EventRead|poller.EventWrite, rec("r1"), rec("w1")))
	require.NoError(t, el.AddSocketEvent(2, poller.EventWrite, nil, rec("w2")))
	require.NoError(t, el.AddSocketEvent(3, poller.EventRead, rec("r3"), nil))

	both := poller.EventRead | poller.EventWrite
	mux.pending = [][]poller.FiredEvent{
		{{FD: 1, Mask: both}, {FD: 2, Mask: both}, {FD: 3, Mask: poller.EventWrite}, {FD: 9, Mask: both}},
		{{FD: 1, Mask: poller.EventWrite}},
	}
	el.RunOnce()
	assert.Equal(t, []string{"r1", "w2"}, calls)

	calls = nil
	el.RunOnce()
	assert.Equal(t, []string{"w1"}, calls)
}

// TestDispatch_DeletedDuringIteration 测试回调中注销的描述符本轮不再触发
func TestDispatch_DeletedDuringIteration(t *testing.T) {
	el, mux, _ := newLoop(t)
	var calls []int
	require.NoError(t, el.AddSocketEvent(1, poller.EventRead, func(el *EventLoop, fd int) {
		calls = append(calls, fd)
		require.NoError(t, el.DeleteSocketEvent(2))
	}, nil))
	require.NoError(t, el.AddSocketEvent(2, poller.EventRead, func(_ *EventLoop, fd int) {
		calls = append(calls, fd)
	}, nil))

	mux.pending = [][]poller.FiredEvent{{{FD: 1, Mask: poller.EventRead}, {FD: 2, Mask: poller.EventRead}}}
	el.RunOnce()
	assert.Equal(t, []int{1}, calls)
}

// TestTimer_Order 测试到期定时器按计划时间升序触发
func TestTimer_Order(t *testing.T) {
	el, _, mock := newLoop(t)
	start := mock.Now()

	var order []time.Duration
	record := func(d time.Duration) TimeCallback {
		return func(el *EventLoop, id int) {
			order = append(order, d)
			if len(order) == 3 {
				el.Stop()
			}
		}
	}
	for _, d := range []time.Duration{30 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond} {
		_, err := el.AddTimeEvent(start.Add(d), 0, record(d))
		require.NoError(t, err)
	}

	mock.Add(40 * time.Millisecond)
	el.Main()

	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}, order)
	assert.Zero(t, el.Timers())
	assert.True(t, el.Stopped())
}

// TestTimer_FireProgressively 测试定时器只在到期后触发
func TestTimer_FireProgressively(t *testing.T) {
	el, mux, mock := newLoop(t)
	start := mock.Now()
	var fired []int
	for i, d := range []time.Duration{30, 10, 20} {
		i := i
		_, err := el.AddTimeEvent(start.Add(d*time.Millisecond), 0, func(*EventLoop, int) { fired = append(fired, i) })
		require.NoError(t, err)
	}

	el.RunOnce()
	assert.Empty(t, fired)
	assert.Equal(t, 10, mux.timeouts[len(mux.timeouts)-1])

	mock.Add(15 * time.Millisecond)
	el.RunOnce()
	assert.Equal(t, []int{1}, fired)
	assert.Equal(t, 5, mux.timeouts[len(mux.timeouts)-1])

	mock.Add(20 * time.Millisecond)
	el.RunOnce()
	assert.Equal(t, []int{1, 2, 0}, fired)
}

// TestTimer_Periodic 测试周期定时器在触发后按 now+period 改期
func TestTimer_Periodic(t *testing.T) {
	el, mux, mock := newLoop(t)
	count := 0
	id, err := el.AddTimeEvent(mock.Now(), 4*time.Millisecond, func(*EventLoop, int) { count++ })
	require.NoError(t, err)

	el.RunOnce()
	assert.Equal(t, 1, count)
	assert.Equal(t, 4, mux.timeouts[len(mux.timeouts)-1])

	el.RunOnce()
	assert.Equal(t, 1, count)

	mock.Add(4 * time.Millisecond)
	el.RunOnce()
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, el.Timers())

	require.NoError(t, el.DeleteTimeEvent(id))
	mock.Add(10 * time.Millisecond)
	el.RunOnce()
	assert.Equal(t, 2, count)
}

// TestTimer_TableFull 测试定时器表满时返回哨兵
func TestTimer_TableFull(t *testing.T) {
	el, _, mock := newLoop(t, WithTimerTableSize(2))
	cb := func(*EventLoop, int) {}

	id0, err := el.AddTimeEvent(mock.Now(), 0, cb)
	require.NoError(t, err)
	id1, err := el.AddTimeEvent(mock.Now(), 0, cb)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, []int{id0, id1})

	id, err := el.AddTimeEvent(mock.Now(), 0, cb)
	assert.Equal(t, -1, id)
	assert.ErrorIs(t, err, ErrTimerTableFull)

	require.NoError(t, el.DeleteTimeEvent(id0))
	id, err = el.AddTimeEvent(mock.Now(), 0, cb)
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	_, err = el.AddTimeEvent(mock.Now(), 0, nil)
	assert.ErrorIs(t, err, ErrMissingCallback)
	assert.ErrorIs(t, el.DeleteTimeEvent(7), ErrTimerNotFound)
}

// TestTimer_ModifyInsideCallback 测试回调内改期的一次性定时器保留新计划
func TestTimer_ModifyInsideCallback(t *testing.T) {
	el, _, mock := newLoop(t)
	count := 0
	var cb TimeCallback
	cb = func(el *EventLoop, id int) {
		count++
		if count == 1 {
			require.NoError(t, el.ModifyTimeEvent(id, mock.Now().Add(5*time.Millisecond), 0, cb))
		}
	}
	_, err := el.AddTimeEvent(mock.Now(), 0, cb)
	require.NoError(t, err)

	el.RunOnce()
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, el.Timers())

	mock.Add(5 * time.Millisecond)
	el.RunOnce()
	assert.Equal(t, 2, count)
	assert.Zero(t, el.Timers())

	assert.ErrorIs(t, el.ModifyTimeEvent(0, mock.Now(), 0, cb), ErrTimerNotFound)
}

// TestTimer_AddedByCallbackLowersBound 测试回调中新增的更早定时器缩短等待
func TestTimer_AddedByCallbackLowersBound(t *testing.T) {
	el, mux, mock := newLoop(t)
	_, err := el.AddTimeEvent(mock.Now(), 0, func(el *EventLoop, _ int) {
		_, err := el.AddTimeEvent(mock.Now().Add(2*time.Millisecond), 0, nopTimer)
		require.NoError(t, err)
	})
	require.NoError(t, err)

	el.RunOnce()
	assert.Equal(t, 2, mux.timeouts[0])
}

func nopTimer(*EventLoop, int) {}

// TestStop 测试 Stop 唤醒多路复用器且 Reset 后可重新运行
func TestStop(t *testing.T) {
	el, mux, _ := newLoop(t)
	el.Stop()
	assert.Equal(t, 1, mux.woken)
	el.Main()
	assert.Empty(t, mux.timeouts)

	el.Reset()
	assert.False(t, el.Stopped())
}

// TestPollError 测试多路复用器关闭时循环自行停止，其他错误不停止
func TestPollError(t *testing.T) {
	el, mux, _ := newLoop(t)
	mux.failPoll = errors.New("fake: poll")
	el.RunOnce()
	assert.False(t, el.Stopped())

	mux.failPoll = poller.ErrClosed
	el.Main()
	assert.True(t, el.Stopped())
	assert.Len(t, mux.timeouts, 2)
}
