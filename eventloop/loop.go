// Package eventloop 实现单 goroutine 的反应器：描述符就绪回调与软件定时器
//
// 除 Stop 外，所有方法只能在调用 Main/RunOnce 的 goroutine 上使用
// （通常即在回调内部），内部不加锁。
package eventloop

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/legamerdc/netlib/internal/logger"
	"github.com/legamerdc/netlib/poller"
)

const (
	DefaultSocketTableSize = 10 * 1024
	DefaultTimerTableSize  = 1024
	// DefaultMaxWait 无定时器时单次等待的上限，保证停止标志被及时观察
	DefaultMaxWait = 10 * time.Millisecond

	pollErrorBackoff = time.Millisecond
)

var (
	ErrInvalidMask       = errors.New("eventloop: invalid mask")
	ErrFDOutOfRange      = errors.New("eventloop: descriptor out of table range")
	ErrAlreadyRegistered = errors.New("eventloop: descriptor already registered")
	ErrNotRegistered     = errors.New("eventloop: descriptor not registered")
	ErrMissingCallback   = errors.New("eventloop: missing callback for mask")
	ErrTimerTableFull    = errors.New("eventloop: timer table full")
	ErrTimerNotFound     = errors.New("eventloop: timer not found")
)

// SocketCallback 为描述符就绪回调
type SocketCallback func(el *EventLoop, fd int)

type socketEvent struct {
	mask  poller.Mask
	read  SocketCallback
	write SocketCallback
}

type EventLoop struct {
	mux     poller.Multiplexer
	clock   clock.Clock
	log     *slog.Logger
	maxWait time.Duration

	sockets    []socketEvent
	registered int
	fired      []poller.FiredEvent

	timers      []timeEvent
	firedTimers []firedTimer
	bound       time.Time

	stop atomic.Bool
}

type Option func(*EventLoop)

// WithClock 替换时钟，测试中可注入 clock.NewMock()
func WithClock(c clock.Clock) Option {
	return func(el *EventLoop) { el.clock = c }
}

func WithSocketTableSize(n int) Option {
	return func(el *EventLoop) {
		if n > 0 {
			el.sockets = make([]socketEvent, n)
		}
	}
}

func WithTimerTableSize(n int) Option {
	return func(el *EventLoop) {
		if n > 0 {
			el.timers = make([]timeEvent, n)
		}
	}
}

func WithMaxWait(d time.Duration) Option {
	return func(el *EventLoop) {
		if d > 0 {
			el.maxWait = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(el *EventLoop) {
		if l != nil {
			el.log = l
		}
	}
}

// New 以给定多路复用器构造事件循环，循环不拥有 mux 的生命周期
func New(mux poller.Multiplexer, opts ...Option) *EventLoop {
	el := &EventLoop{
		mux:     mux,
		clock:   clock.New(),
		log:     logger.Logger("eventloop"),
		maxWait: DefaultMaxWait,
		sockets: make([]socketEvent, DefaultSocketTableSize),
		timers:  make([]timeEvent, DefaultTimerTableSize),
	}
	for _, opt := range opts {
		opt(el)
	}
	el.fired = make([]poller.FiredEvent, len(el.sockets))
	el.firedTimers = make([]firedTimer, 0, len(el.timers))
	return el
}

// Clock 返回事件循环使用的时钟
func (el *EventLoop) Clock() clock.Clock { return el.clock }

func (el *EventLoop) Multiplexer() poller.Multiplexer { return el.mux }

func (el *EventLoop) slot(fd int) (*socketEvent, error) {
	if fd < 0 || fd >= len(el.sockets) {
		return nil, ErrFDOutOfRange
	}
	return &el.sockets[fd], nil
}

func checkCallbacks(mask poller.Mask, r, w SocketCallback) error {
	if mask == poller.EventNone || mask&^(poller.EventRead|poller.EventWrite) != 0 {
		return ErrInvalidMask
	}
	if mask&poller.EventRead != 0 && r == nil {
		return ErrMissingCallback
	}
	if mask&poller.EventWrite != 0 && w == nil {
		return ErrMissingCallback
	}
	return nil
}

// AddSocketEvent 注册 fd 的读写兴趣
func (el *EventLoop) AddSocketEvent(fd int, mask poller.Mask, r, w SocketCallback) error {
	if err := checkCallbacks(mask, r, w); err != nil {
		return err
	}
	se, err := el.slot(fd)
	if err != nil {
		return err
	}
	if se.mask != poller.EventNone {
		return ErrAlreadyRegistered
	}
	if err := el.mux.RegisterEvent(fd, mask); err != nil {
		return err
	}
	*se = socketEvent{mask: mask, read: r, write: w}
	el.registered++
	return nil
}

// ModifySocketEvent 整体替换已注册 fd 的兴趣位与回调
func (el *EventLoop) ModifySocketEvent(fd int, mask poller.Mask, r, w SocketCallback) error {
	se, err := el.slot(fd)
	if err != nil {
		return err
	}
	if se.mask == poller.EventNone {
		return ErrNotRegistered
	}
	if err := checkCallbacks(mask, r, w); err != nil {
		return err
	}
	if mask != se.mask {
		if err := el.mux.ModifyEvent(fd, mask); err != nil {
			return err
		}
	}
	*se = socketEvent{mask: mask}
	if mask&poller.EventRead != 0 {
		se.read = r
	}
	if mask&poller.EventWrite != 0 {
		se.write = w
	}
	return nil
}

// ModifySocketReadEvent 设置（cb 非空）或清除（cb 为空）读兴趣，写兴趣保持不变
func (el *EventLoop) ModifySocketReadEvent(fd int, cb SocketCallback) error {
	se, err := el.slot(fd)
	if err != nil {
		return err
	}
	mask := se.mask &^ poller.EventRead
	if cb != nil {
		mask |= poller.EventRead
	}
	return el.ModifySocketEvent(fd, mask, cb, se.write)
}

// ModifySocketWriteEvent 设置（cb 非空）或清除（cb 为空）写兴趣，读兴趣保持不变
func (el *EventLoop) ModifySocketWriteEvent(fd int, cb SocketCallback) error {
	se, err := el.slot(fd)
	if err != nil {
		return err
	}
	mask := se.mask &^ poller.EventWrite
	if cb != nil {
		mask |= poller.EventWrite
	}
	return el.ModifySocketEvent(fd, mask, se.read, cb)
}

// DeleteSocketEvent 注销 fd；未注册时返回 ErrNotRegistered 且不触碰多路复用器
func (el *EventLoop) DeleteSocketEvent(fd int) error {
	se, err := el.slot(fd)
	if err != nil {
		return err
	}
	if se.mask == poller.EventNone {
		return ErrNotRegistered
	}
	*se = socketEvent{}
	el.registered--
	if err := el.mux.UnregisterEvent(fd); err != nil {
		el.log.Warn("unregister failed", "fd", fd, "err", err)
		return err
	}
	return nil
}

// SocketMask 返回 fd 当前登记的兴趣位
func (el *EventLoop) SocketMask(fd int) poller.Mask {
	if fd < 0 || fd >= len(el.sockets) {
		return poller.EventNone
	}
	return el.sockets[fd].mask
}

// Registered 返回当前登记的描述符数量
func (el *EventLoop) Registered() int { return el.registered }

// Stop 设置停止标志并唤醒等待，可跨 goroutine 调用；
// 当前迭代中的等待与回调会先完成。
func (el *EventLoop) Stop() {
	el.stop.Store(true)
	if err := el.mux.Wake(); err != nil && !errors.Is(err, poller.ErrClosed) {
		el.log.Warn("wake failed", "err", err)
	}
}

func (el *EventLoop) Stopped() bool { return el.stop.Load() }

// Reset 清除停止标志，使 Main 可以再次运行
func (el *EventLoop) Reset() { el.stop.Store(false) }

// Main 循环执行 RunOnce 直到观察到停止标志
func (el *EventLoop) Main() {
	for !el.stop.Load() {
		el.RunOnce()
	}
}

// RunOnce 执行一次迭代：到期定时器 -> 计算等待预算 -> 轮询 -> 分发就绪回调
func (el *EventLoop) RunOnce() {
	now := el.clock.Now()
	el.bound = now.Add(el.maxWait)
	el.processTimers(now)

	wait := el.bound.Sub(el.clock.Now())
	if wait < 0 {
		wait = 0
	}
	timeoutMs := int((wait + time.Millisecond - 1) / time.Millisecond)

	n, err := el.mux.PollEvent(el.fired, timeoutMs)
	if err != nil {
		if errors.Is(err, poller.ErrClosed) {
			// 多路复用器已关闭，循环无法继续
			el.log.Warn("multiplexer closed, stopping", "err", err)
			el.stop.Store(true)
			return
		}
		el.log.Error("poll failed", "err", err)
		time.Sleep(pollErrorBackoff)
		return
	}
	for i := 0; i < n; i++ {
		ev := el.fired[i]
		if ev.FD < 0 || ev.FD >= len(el.sockets) {
			continue
		}
		se := el.sockets[ev.FD]
		if se.mask&ev.Mask&poller.EventRead != 0 && se.read != nil {
			se.read(el, ev.FD)
			continue
		}
		if se.mask&ev.Mask&poller.EventWrite != 0 && se.write != nil {
			se.write(el, ev.FD)
		}
	}
}
