package pool

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/legamerdc/netlib/internal/logger"
)

// ErrPoolClosed 线程池已 Join
var ErrPoolClosed = errors.New("pool: pool closed")

const waitPollInterval = 10 * time.Microsecond

// ThreadPool 由固定数量 worker 共享一个有界队列。
// Join 只等待正在执行的任务，队列中尚未取走的任务被放弃。
type ThreadPool struct {
	q        *BoundedQueue[Task]
	workers  []*worker
	joinOnce sync.Once
	log      *slog.Logger
}

type Option func(*options)

type options struct {
	step time.Duration
	max  time.Duration
	log  *slog.Logger
}

// WithBackoff 调整 worker 空闲睡眠的步长与上限
func WithBackoff(step, max time.Duration) Option {
	return func(o *options) {
		if step > 0 {
			o.step = step
		}
		if max > 0 {
			o.max = max
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// NewThreadPool 启动 workers 个 worker，队列容量 queueLimit
func NewThreadPool(workers, queueLimit int, opts ...Option) *ThreadPool {
	o := options{step: DefaultBackoffStep, max: DefaultMaxBackoff, log: logger.Logger("pool")}
	for _, opt := range opts {
		opt(&o)
	}
	if workers < 1 {
		workers = 1
	}
	p := &ThreadPool{q: NewBoundedQueue[Task](queueLimit), log: o.log}
	for i := 0; i < workers; i++ {
		w := newWorker(i, p.q, o.step, o.max, o.log)
		p.workers = append(p.workers, w)
		go w.run()
	}
	return p
}

// AddTask 提交任务，队满时阻塞（背压）；Join 之后返回 ErrPoolClosed
func (p *ThreadPool) AddTask(t Task) error {
	if t == nil {
		return nil
	}
	if err := p.q.Push(t); err != nil {
		return ErrPoolClosed
	}
	return nil
}

// WaitAllTasks 轮询等待队列为空后 Join
func (p *ThreadPool) WaitAllTasks() {
	for !p.q.Empty() {
		time.Sleep(waitPollInterval)
	}
	p.Join()
}

// Join 通知 worker 在当前任务后退出并等待，可重复调用
func (p *ThreadPool) Join() {
	p.joinOnce.Do(func() {
		p.q.Close()
		for _, w := range p.workers {
			w.stop.Store(true)
		}
		for _, w := range p.workers {
			<-w.done
		}
		if n := p.q.Len(); n > 0 {
			p.log.Warn("abandoned queued tasks", "count", n)
		}
	})
}

// Abandoned 取走 Join 后遗留在队列中的任务
func (p *ThreadPool) Abandoned() []Task { return p.q.Drain() }

// Pending 返回排队中的任务数
func (p *ThreadPool) Pending() int { return p.q.Len() }

func (p *ThreadPool) Workers() int { return len(p.workers) }
