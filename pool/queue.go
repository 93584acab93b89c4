// Package pool 提供有界阻塞队列与固定数量 worker 的线程池
package pool

import (
	"errors"
	"sync"

	"github.com/eapache/queue"
)

// ErrQueueClosed 队列已关闭
var ErrQueueClosed = errors.New("pool: queue closed")

// BoundedQueue 为容量固定的 FIFO：一把互斥锁加非空、非满两个条件变量。
// Push 在满时阻塞，Pop 在空时阻塞，TryPop 不阻塞。
type BoundedQueue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    *queue.Queue
	capacity int
	closed   bool
}

// NewBoundedQueue 创建容量为 capacity 的队列，capacity < 1 时按 1 处理
func NewBoundedQueue[T any](capacity int) *BoundedQueue[T] {
	if capacity < 1 {
		capacity = 1
	}
	q := &BoundedQueue[T]{items: queue.New(), capacity: capacity}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Push 入队，队满时阻塞直到有空位或队列关闭
func (q *BoundedQueue[T]) Push(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.closed && q.items.Length() >= q.capacity {
		q.notFull.Wait()
	}
	if q.closed {
		return ErrQueueClosed
	}
	q.items.Add(v)
	q.notEmpty.Signal()
	return nil
}

// Pop 出队，队空时阻塞直到有元素或队列关闭
func (q *BoundedQueue[T]) Pop() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.closed && q.items.Length() == 0 {
		q.notEmpty.Wait()
	}
	if q.items.Length() == 0 {
		var zero T
		return zero, ErrQueueClosed
	}
	return q.remove(), nil
}

// TryPop 非阻塞出队
func (q *BoundedQueue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Length() == 0 {
		var zero T
		return zero, false
	}
	return q.remove(), true
}

func (q *BoundedQueue[T]) remove() T {
	v := q.items.Remove().(T)
	q.notFull.Signal()
	return v
}

func (q *BoundedQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

func (q *BoundedQueue[T]) Empty() bool { return q.Len() == 0 }

func (q *BoundedQueue[T]) Cap() int { return q.capacity }

// Close 唤醒所有等待者；之后 Push 失败，Pop 只取剩余元素
func (q *BoundedQueue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Drain 取走并返回全部剩余元素
func (q *BoundedQueue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, 0, q.items.Length())
	for q.items.Length() > 0 {
		out = append(out, q.remove())
	}
	return out
}
