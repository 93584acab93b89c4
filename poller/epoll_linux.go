//go:build linux

package poller

import (
	"log/slog"
	"sync/atomic"

	"github.com/legamerdc/netlib/internal/logger"
	"golang.org/x/sys/unix"
)

// maxEvents 单次 epoll_wait 返回的上限
const maxEvents = 10 * 1024

type epollPoller struct {
	efd    int
	wfd    int // eventfd for wakeup
	closed atomic.Bool
	events []unix.EpollEvent
	log    *slog.Logger
}

// New 创建 epoll 后端（水平触发）
func New() (Multiplexer, error) {
	efd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wfd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(efd)
		return nil, err
	}
	ev := &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wfd)}
	if err := unix.EpollCtl(efd, unix.EPOLL_CTL_ADD, wfd, ev); err != nil {
		unix.Close(wfd)
		unix.Close(efd)
		return nil, err
	}
	return &epollPoller{
		efd:    efd,
		wfd:    wfd,
		events: make([]unix.EpollEvent, 1024),
		log:    logger.Logger("poller"),
	}, nil
}

func epollFlags(mask Mask) uint32 {
	var flag uint32
	if mask&EventRead != 0 {
		flag |= unix.EPOLLIN
	}
	if mask&EventWrite != 0 {
		flag |= unix.EPOLLOUT
	}
	return flag
}

func (p *epollPoller) RegisterEvent(fd FD, mask Mask) error {
	if !validMask(mask) {
		return ErrInvalidMask
	}
	ev := &unix.EpollEvent{Events: epollFlags(mask), Fd: int32(fd)}
	return unix.EpollCtl(p.efd, unix.EPOLL_CTL_ADD, fd, ev)
}

func (p *epollPoller) ModifyEvent(fd FD, mask Mask) error {
	if !validMask(mask) {
		return ErrInvalidMask
	}
	ev := &unix.EpollEvent{Events: epollFlags(mask), Fd: int32(fd)}
	return unix.EpollCtl(p.efd, unix.EPOLL_CTL_MOD, fd, ev)
}

func (p *epollPoller) UnregisterEvent(fd FD) error {
	return unix.EpollCtl(p.efd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) PollEvent(fired []FiredEvent, timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	want := len(fired)
	if want == 0 {
		return 0, nil
	}
	if want > maxEvents {
		want = maxEvents
	}
	if want > len(p.events) {
		p.events = make([]unix.EpollEvent, want)
	}
	n, err := unix.EpollWait(p.efd, p.events[:want], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		p.log.Error("epoll wait failed", "err", err)
		return 0, err
	}
	count := 0
	for i := 0; i < n; i++ {
		ev := p.events[i]
		fd := int(ev.Fd)
		if fd == p.wfd {
			p.drainWake()
			continue
		}
		var mask Mask
		if ev.Events&unix.EPOLLIN != 0 {
			mask |= EventRead
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			mask |= EventWrite
		}
		// 出错或挂断时交给读写回调自行发现
		if ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			mask |= EventRead | EventWrite
		}
		fired[count] = FiredEvent{FD: fd, Mask: mask}
		count++
	}
	return count, nil
}

func (p *epollPoller) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(p.wfd, buf[:]); err != nil {
			return
		}
	}
}

func (p *epollPoller) Wake() error {
	if p.closed.Load() {
		return ErrClosed
	}
	var buf [8]byte
	buf[0] = 1
	_, err := unix.Write(p.wfd, buf[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

func (p *epollPoller) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	unix.Close(p.wfd)
	return unix.Close(p.efd)
}
