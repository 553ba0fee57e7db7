// Scheduler implementations for rxstream
// 调度器：ObserveOn用它把回调投递到外部执行上下文
package rxstream

import (
	"context"
	"sync"
	"sync/atomic"
)

// Scheduler 调度器接口，只负责投递回调，不保证与调用方同步
type Scheduler interface {
	// Schedule 调度一个任务，返回的Disposable可在任务执行前取消它
	Schedule(action func()) Disposable
}

// SchedulerFunc 函数形式的调度器，便于接入已有的执行器
type SchedulerFunc func(action func())

// Schedule 实现Scheduler接口
func (f SchedulerFunc) Schedule(action func()) Disposable {
	task := newScheduledTask(action)
	f(task.run)
	return task
}

// scheduledTask 可取消的任务
type scheduledTask struct {
	claimed atomic.Bool
	action  func()
}

func newScheduledTask(action func()) *scheduledTask {
	return &scheduledTask{action: action}
}

func (t *scheduledTask) run() {
	if t.claimed.CompareAndSwap(false, true) {
		t.action()
	}
}

func (t *scheduledTask) Dispose() {
	t.claimed.Store(true)
}

func (t *scheduledTask) IsDisposed() bool {
	return t.claimed.Load()
}

// ============================================================================
// 立即调度器 - Immediate Scheduler
// ============================================================================

// immediateScheduler 立即在当前goroutine中执行任务
type immediateScheduler struct{}

// NewImmediateScheduler 创建立即调度器
func NewImmediateScheduler() Scheduler {
	return immediateScheduler{}
}

// Schedule 立即执行任务
func (immediateScheduler) Schedule(action func()) Disposable {
	task := newScheduledTask(action)
	task.run()
	return task
}

// ============================================================================
// 蹦床调度器 - Trampoline Scheduler
// ============================================================================

// trampolineScheduler 在当前goroutine中按顺序执行任务；
// 任务内再次调度的任务排队到当前任务结束之后，而不是递归执行。
// 已有goroutine在处理队列时，其他goroutine调度的任务同样排队并立即返回，
// 由正在处理的goroutine执行。任务panic时已排队的任务仍会执行完，panic随后继续传播。
type trampolineScheduler struct {
	mu         sync.Mutex
	queue      *Queue[*scheduledTask]
	processing bool
}

// NewTrampolineScheduler 创建蹦床调度器
func NewTrampolineScheduler() Scheduler {
	return &trampolineScheduler{queue: NewQueue[*scheduledTask](16)}
}

// Schedule 排队任务，没有正在处理的队列时由调用方goroutine处理
func (s *trampolineScheduler) Schedule(action func()) Disposable {
	task := newScheduledTask(action)

	s.mu.Lock()
	s.queue.Push(task)
	if s.processing {
		s.mu.Unlock()
		return task
	}
	s.processing = true
	s.mu.Unlock()

	s.drain()
	return task
}

func (s *trampolineScheduler) drain() {
	finished := false
	defer func() {
		if finished {
			return
		}
		r := recover()
		if r == nil {
			// runtime.Goexit：交出处理权，剩下的任务由下一次Schedule处理
			s.mu.Lock()
			s.processing = false
			s.mu.Unlock()
			return
		}
		// 任务panic时先在当前goroutine执行完已排队的任务，再把panic继续向外抛
		s.drain()
		panic(r)
	}()
	for {
		s.mu.Lock()
		task, ok := s.queue.Pop()
		if !ok {
			s.processing = false
			s.mu.Unlock()
			finished = true
			return
		}
		s.mu.Unlock()

		task.run()
	}
}

// ============================================================================
// 新goroutine调度器 - Goroutine Scheduler
// ============================================================================

// goroutineScheduler 每个任务一个新goroutine，任务之间没有顺序保证
type goroutineScheduler struct{}

// NewGoroutineScheduler 创建新goroutine调度器
func NewGoroutineScheduler() Scheduler {
	return goroutineScheduler{}
}

// Schedule 在新goroutine中执行任务
func (goroutineScheduler) Schedule(action func()) Disposable {
	task := newScheduledTask(action)
	go task.run()
	return task
}

// ============================================================================
// 事件循环调度器 - Event Loop Scheduler
// ============================================================================

// EventLoopScheduler 单个工作goroutine按投递顺序串行执行任务
type EventLoopScheduler struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   *Queue[*scheduledTask]
	stopped bool
	done    chan struct{}
}

// NewEventLoopScheduler 创建事件循环调度器
func NewEventLoopScheduler() *EventLoopScheduler {
	s := &EventLoopScheduler{
		queue: NewQueue[*scheduledTask](16),
		done:  make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.loop()
	return s
}

// Schedule 投递任务，调度器停止后投递的任务不会执行
func (s *EventLoopScheduler) Schedule(action func()) Disposable {
	task := newScheduledTask(action)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		task.Dispose()
		return task
	}
	s.queue.Push(task)
	s.cond.Signal()
	return task
}

func (s *EventLoopScheduler) loop() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for s.queue.Len() == 0 && !s.stopped {
			s.cond.Wait()
		}
		task, ok := s.queue.Pop()
		if !ok {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		task.run()
	}
}

// Stop 停止接收新任务，已投递的任务执行完后工作goroutine退出
func (s *EventLoopScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Wait 等待工作goroutine退出或ctx结束
func (s *EventLoopScheduler) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
