package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/legamerdc/netlib/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newPool(workers, limit int) *ThreadPool {
	return NewThreadPool(workers, limit, WithLogger(logger.Discard()))
}

// TestThreadPool_WaitAllTasks 测试全部任务执行完毕
func TestThreadPool_WaitAllTasks(t *testing.T) {
	p := newPool(4, 8)
	assert.Equal(t, 4, p.Workers())

	var done atomic.Int64
	var g errgroup.Group
	for producer := 0; producer < 4; producer++ {
		g.Go(func() error {
			for i := 0; i < 250; i++ {
				if err := p.AddTask(func() { done.Add(1) }); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	p.WaitAllTasks()
	assert.Equal(t, int64(1000), done.Load())
	assert.ErrorIs(t, p.AddTask(func() {}), ErrPoolClosed)
}

// TestThreadPool_BackPressure 测试队列满时 AddTask 阻塞
func TestThreadPool_BackPressure(t *testing.T) {
	p := newPool(1, 1)
	defer p.Join()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.AddTask(func() {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, p.AddTask(func() {}))

	added := make(chan struct{})
	go func() {
		_ = p.AddTask(func() {})
		close(added)
	}()
	select {
	case <-added:
		t.Fatal("AddTask on full queue did not block")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	select {
	case <-added:
	case <-time.After(2 * time.Second):
		t.Fatal("AddTask not released")
	}
}

// TestThreadPool_JoinAbandonsQueued 测试 Join 不保证队列排空
func TestThreadPool_JoinAbandonsQueued(t *testing.T) {
	p := newPool(1, 4)
	release := make(chan struct{})
	started := make(chan struct{})
	var ran atomic.Int64
	require.NoError(t, p.AddTask(func() {
		close(started)
		<-release
		ran.Add(1)
	}))
	<-started
	for i := 0; i < 3; i++ {
		require.NoError(t, p.AddTask(func() { ran.Add(1) }))
	}

	joined := make(chan struct{})
	go func() {
		p.Join()
		close(joined)
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	<-joined

	// worker 在结束当前任务后可能还会顺手取走一个任务，但不会清空队列
	assert.Less(t, ran.Load(), int64(4))
	left := p.Abandoned()
	assert.Equal(t, int64(4), ran.Load()+int64(len(left)))
	assert.Zero(t, p.Pending())
	p.Join()
}

// TestThreadPool_PanicRecovered 测试任务 panic 不影响 worker
func TestThreadPool_PanicRecovered(t *testing.T) {
	p := newPool(1, 4)
	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, p.AddTask(func() { panic("boom") }))
	require.NoError(t, p.AddTask(wg.Done))
	wg.Wait()
	p.WaitAllTasks()
}

// TestWorker_Backoff 测试空闲睡眠递增至上限、成功后减半
func TestWorker_Backoff(t *testing.T) {
	q := NewBoundedQueue[Task](4)
	w := newWorker(0, q, time.Microsecond, 3*time.Microsecond, logger.Discard())
	go w.run()
	time.Sleep(5 * time.Millisecond)
	w.stop.Store(true)
	<-w.done
	assert.Equal(t, 3*time.Microsecond, w.sleep)
}
