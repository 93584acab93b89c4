//go:build linux || darwin

package handler

import (
	"errors"
	"io"

	"github.com/legamerdc/netlib/codec"
	"github.com/legamerdc/netlib/eventloop"
	"github.com/legamerdc/netlib/poller"
	"golang.org/x/sys/unix"
)

// ioSlot 为事件循环面复用的 SocketIO，只在循环 goroutine 上使用
type ioSlot struct {
	sio *codec.SocketIO
}

func (s *ioSlot) bind(fd int) *codec.SocketIO {
	if s.sio == nil {
		s.sio = codec.WrapSocket(fd, 0, 0)
		s.sio.SetMaxRetry(0)
		return s.sio
	}
	s.sio.Reset(fd)
	return s.sio
}

// PrepareConn 为同步面写入每连接一次的读写时限
func (h *Handler) PrepareConn(fd int) error {
	if h.timeout <= 0 {
		return nil
	}
	return codec.ApplyTimeouts(fd, h.timeout, h.timeout)
}

func (h *Handler) acquire(fd int) *codec.SocketIO {
	if sio, ok := h.syncIO.Get().(*codec.SocketIO); ok {
		sio.Reset(fd)
		return sio
	}
	return codec.WrapSocket(fd, h.timeout, h.timeout)
}

// SyncRecvRequest 阻塞读取一条请求，时限由 PrepareConn 写入
func (h *Handler) SyncRecvRequest(fd int) ([]byte, error) {
	sio := h.acquire(fd)
	req, err := sio.ReadMessage()
	h.syncIO.Put(sio)
	if err != nil {
		return nil, err
	}
	h.requested(fd)
	return req, nil
}

// SyncSendResponse 阻塞写出响应；空响应返回 ErrEmptyResponse，调用方应关闭连接
func (h *Handler) SyncSendResponse(fd int, resp []byte) error {
	if len(resp) == 0 {
		return ErrEmptyResponse
	}
	sio := h.acquire(fd)
	_, err := sio.WriteMessage(resp)
	h.syncIO.Put(sio)
	return err
}

// AsyncRecvRequest 为事件循环的读就绪回调。
// 读到请求后暂停读兴趣并挂上携带响应的写回调，保证每连接只有一个在途请求；
// 空响应关闭连接。
func (h *Handler) AsyncRecvRequest(el *eventloop.EventLoop, fd int) {
	req, err := h.loopIO.bind(fd).ReadMessage()
	if err != nil {
		if errors.Is(err, codec.ErrWouldBlock) {
			return
		}
		h.teardown(el, fd, err)
		return
	}
	h.requested(fd)

	resp := h.rh.Process(req)
	if len(resp) == 0 {
		h.teardown(el, fd, ErrEmptyResponse)
		return
	}
	if err := el.ModifySocketEvent(fd, poller.EventWrite, nil, h.asyncSendResponse(resp)); err != nil {
		h.teardown(el, fd, err)
	}
}

// asyncSendResponse 返回写就绪回调：写完后恢复读兴趣，未写完则带着剩余部分继续等待
func (h *Handler) asyncSendResponse(resp []byte) eventloop.SocketCallback {
	return func(el *eventloop.EventLoop, fd int) {
		n, err := h.loopIO.bind(fd).WriteMessage(resp)
		switch {
		case errors.Is(err, codec.ErrWouldBlock):
			if merr := el.ModifySocketEvent(fd, poller.EventWrite, nil, h.asyncSendResponse(resp[n:])); merr != nil {
				h.teardown(el, fd, merr)
			}
			return
		case err != nil:
			h.teardown(el, fd, err)
			return
		}
		if err := el.ModifySocketEvent(fd, poller.EventRead, h.AsyncRecvRequest, nil); err != nil {
			h.teardown(el, fd, err)
		}
	}
}

// CloseConn 注销并关闭 fd，未注册时只关闭
func (h *Handler) CloseConn(el *eventloop.EventLoop, fd int) {
	if err := el.DeleteSocketEvent(fd); err != nil && !errors.Is(err, eventloop.ErrNotRegistered) {
		h.log.Warn("deregister failed", "fd", fd, "err", err)
	}
	if err := unix.Close(fd); err != nil {
		h.log.Warn("close failed", "fd", fd, "err", err)
	}
	h.closed(fd)
}

func (h *Handler) teardown(el *eventloop.EventLoop, fd int, err error) {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, codec.ErrConnReset):
		h.log.Debug("peer closed", "fd", fd, "err", err)
	case errors.Is(err, ErrEmptyResponse):
		h.log.Debug("no response, closing", "fd", fd)
	default:
		h.log.Warn("connection error", "fd", fd, "err", err)
	}
	h.CloseConn(el, fd)
}
