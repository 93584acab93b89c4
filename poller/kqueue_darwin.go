//go:build darwin

package poller

import (
	"log/slog"
	"sync/atomic"

	"github.com/legamerdc/netlib/internal/logger"
	"golang.org/x/sys/unix"
)

type kqueuePoller struct {
	kq     int
	wfd    int // 写端，用于唤醒
	rfd    int // 读端，注册到 kqueue
	closed atomic.Bool
	events []unix.Kevent_t
	index  map[int]int // 单次轮询内 fd -> fired 下标
	log    *slog.Logger
}

// New 创建 kqueue 后端（水平触发）
func New() (Multiplexer, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		unix.Close(kq)
		return nil, err
	}
	rfd, wfd := p[0], p[1]
	kev := unix.Kevent_t{Ident: uint64(rfd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD}
	err = unix.SetNonblock(rfd, true)
	if err == nil {
		err = unix.SetNonblock(wfd, true)
	}
	if err == nil {
		_, err = unix.Kevent(kq, []unix.Kevent_t{kev}, nil, nil)
	}
	if err != nil {
		unix.Close(rfd)
		unix.Close(wfd)
		unix.Close(kq)
		return nil, err
	}
	return &kqueuePoller{
		kq:     kq,
		wfd:    wfd,
		rfd:    rfd,
		events: make([]unix.Kevent_t, 1024),
		index:  make(map[int]int),
		log:    logger.Logger("poller"),
	}, nil
}

func kevents(fd FD, mask Mask) []unix.Kevent_t {
	var changes []unix.Kevent_t
	if mask&EventRead != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD})
	}
	if mask&EventWrite != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_ADD})
	}
	return changes
}

func (p *kqueuePoller) RegisterEvent(fd FD, mask Mask) error {
	if !validMask(mask) {
		return ErrInvalidMask
	}
	_, err := unix.Kevent(p.kq, kevents(fd, mask), nil, nil)
	return err
}

func (p *kqueuePoller) ModifyEvent(fd FD, mask Mask) error {
	if !validMask(mask) {
		return ErrInvalidMask
	}
	// 先删除不再需要的过滤器，不存在时的 ENOENT 忽略
	for _, f := range []struct {
		bit    Mask
		filter int16
	}{{EventRead, unix.EVFILT_READ}, {EventWrite, unix.EVFILT_WRITE}} {
		if mask&f.bit == 0 {
			del := unix.Kevent_t{Ident: uint64(fd), Filter: f.filter, Flags: unix.EV_DELETE}
			if _, err := unix.Kevent(p.kq, []unix.Kevent_t{del}, nil, nil); err != nil && err != unix.ENOENT {
				return err
			}
		}
	}
	_, err := unix.Kevent(p.kq, kevents(fd, mask), nil, nil)
	return err
}

func (p *kqueuePoller) UnregisterEvent(fd FD) error {
	var first error
	for _, filter := range []int16{unix.EVFILT_READ, unix.EVFILT_WRITE} {
		del := unix.Kevent_t{Ident: uint64(fd), Filter: filter, Flags: unix.EV_DELETE}
		if _, err := unix.Kevent(p.kq, []unix.Kevent_t{del}, nil, nil); err != nil && err != unix.ENOENT && first == nil {
			first = err
		}
	}
	return first
}

func (p *kqueuePoller) PollEvent(fired []FiredEvent, timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	if len(fired) == 0 {
		return 0, nil
	}
	want := len(fired)
	if want > len(p.events) {
		p.events = make([]unix.Kevent_t, want)
	}
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * 1e6)
		ts = &t
	}
	n, err := unix.Kevent(p.kq, nil, p.events[:want], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		p.log.Error("kevent wait failed", "err", err)
		return 0, err
	}
	clear(p.index)
	count := 0
	for i := 0; i < n; i++ {
		ev := p.events[i]
		fd := int(ev.Ident)
		if fd == p.rfd {
			p.drainWake()
			continue
		}
		var mask Mask
		switch ev.Filter {
		case unix.EVFILT_READ:
			mask = EventRead
		case unix.EVFILT_WRITE:
			mask = EventWrite
		}
		if ev.Flags&(unix.EV_EOF|unix.EV_ERROR) != 0 {
			mask |= EventRead | EventWrite
		}
		if at, ok := p.index[fd]; ok {
			fired[at].Mask |= mask
			continue
		}
		p.index[fd] = count
		fired[count] = FiredEvent{FD: fd, Mask: mask}
		count++
	}
	return count, nil
}

func (p *kqueuePoller) drainWake() {
	buf := make([]byte, 16)
	for {
		if _, err := unix.Read(p.rfd, buf); err != nil {
			return
		}
	}
}

func (p *kqueuePoller) Wake() error {
	if p.closed.Load() {
		return ErrClosed
	}
	_, err := unix.Write(p.wfd, []byte{1})
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

func (p *kqueuePoller) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	unix.Close(p.rfd)
	unix.Close(p.wfd)
	return unix.Close(p.kq)
}
