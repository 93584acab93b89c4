package pool

import (
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	// DefaultBackoffStep 每次取空后睡眠增加的步长
	DefaultBackoffStep = time.Microsecond
	// DefaultMaxBackoff 空闲睡眠上限
	DefaultMaxBackoff = 7 * time.Millisecond
)

// Task 为无参任务
type Task func()

// worker 循环 TryPop：取到任务则睡眠减半并执行，取空则睡眠递增至上限
type worker struct {
	id    int
	q     *BoundedQueue[Task]
	step  time.Duration
	max   time.Duration
	sleep time.Duration
	stop  atomic.Bool
	done  chan struct{}
	log   *slog.Logger
}

func newWorker(id int, q *BoundedQueue[Task], step, max time.Duration, log *slog.Logger) *worker {
	return &worker{id: id, q: q, step: step, max: max, done: make(chan struct{}), log: log}
}

func (w *worker) run() {
	defer close(w.done)
	for !w.stop.Load() {
		if task, ok := w.q.TryPop(); ok {
			w.sleep /= 2
			w.exec(task)
			continue
		}
		time.Sleep(w.sleep)
		w.sleep = min(w.sleep+w.step, w.max)
	}
}

func (w *worker) exec(task Task) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("task panic", "worker", w.id, "panic", r)
		}
	}()
	task()
}
