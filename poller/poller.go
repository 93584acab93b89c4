// Package poller 为事件循环提供就绪多路复用能力
package poller

import "errors"

// FD 表示文件描述符。
type FD = int

// Mask 为读写兴趣位
type Mask uint32

const (
	EventNone  Mask = 0
	EventRead  Mask = 1 << 0
	EventWrite Mask = 1 << 1
)

func (m Mask) String() string {
	switch m {
	case EventNone:
		return "none"
	case EventRead:
		return "read"
	case EventWrite:
		return "write"
	case EventRead | EventWrite:
		return "read|write"
	}
	return "invalid"
}

// FiredEvent 为一次轮询中某个描述符的就绪位
type FiredEvent struct {
	FD   FD
	Mask Mask
}

// Multiplexer 为就绪多路复用能力。
// 除 Wake 外均只允许在事件循环所在 goroutine 调用。
type Multiplexer interface {
	RegisterEvent(fd FD, mask Mask) error
	UnregisterEvent(fd FD) error
	ModifyEvent(fd FD, mask Mask) error
	// PollEvent 至多等待 timeoutMs 毫秒（负数表示无限等待），
	// 将就绪描述符写入 fired，返回数量；同一 fd 每次至多出现一次。
	PollEvent(fired []FiredEvent, timeoutMs int) (int, error)
	// Wake 使阻塞中的 PollEvent 立即返回，可跨 goroutine 调用
	Wake() error
	Close() error
}

var (
	// ErrNotSupported 当前平台无可用后端
	ErrNotSupported = errors.New("poller: platform not supported")
	// ErrClosed 多路复用器已关闭
	ErrClosed = errors.New("poller: closed")
	// ErrInvalidMask 兴趣位为空或非法
	ErrInvalidMask = errors.New("poller: invalid mask")
)

func validMask(m Mask) bool {
	return m != EventNone && m&^(EventRead|EventWrite) == 0
}
