// Concurrency-safety operators for rxstream
// 并发安全操作符：互斥锁包装与调度器投递
package rxstream

import "sync"

// ============================================================================
// 互斥域
// ============================================================================

// lockDomain 共享同一把锁的一组Listener。
// 调用在locker的临界区内逐个执行；正在执行时到达的调用（包括当前调用同步触发的
// 重入调用和其他goroutine的调用）排队，由正在执行的goroutine在当前调用结束后依次执行。
type lockDomain struct {
	locker     sync.Locker
	trampoline Scheduler
}

func newLockDomain(locker sync.Locker) *lockDomain {
	if locker == nil {
		locker = &sync.Mutex{}
	}
	return &lockDomain{locker: locker, trampoline: NewTrampolineScheduler()}
}

func (d *lockDomain) run(action func()) {
	d.trampoline.Schedule(func() {
		d.locker.Lock()
		defer d.locker.Unlock()
		action()
	})
}

// ============================================================================
// Concurrent / Lock
// ============================================================================

type concurrent[T any] struct {
	domain *lockDomain
}

// Concurrent 在locker的临界区内转发React和OnDispose。
// 已释放标志在临界区内检查，与释放竞争的React要么完整执行要么被丢弃；
// OnDispose幂等。locker为nil时为该Decorator创建一把互斥锁，
// 由它产生的所有订阅共享。
// 临界区内同步触发的调用（例如下游Take释放自己的订阅）不会死锁，
// 而是在当前调用结束后执行。
// 其他goroutine在域忙时到达的调用也只是排队：调用立即返回，回调稍后在
// 正在执行的goroutine上运行，回调中的panic也在那个goroutine上抛出。
// 前一个回调panic时，已排队的调用（包括OnDispose）仍会执行。
func Concurrent[T any](locker sync.Locker) Decorator[T, T] {
	return &concurrent[T]{domain: newLockDomain(locker)}
}

// Lock 与Concurrent相同，使用调用方提供的*sync.Mutex
func Lock[T any](mu *sync.Mutex) Decorator[T, T] {
	if mu == nil {
		return Concurrent[T](nil)
	}
	return Concurrent[T](mu)
}

func (d *concurrent[T]) Decorate(next Listener[T], _ Subscriber) Listener[T] {
	return &concurrentListener[T]{Forwarder: Forwarder[T]{Next: next}, domain: d.domain}
}

type concurrentListener[T any] struct {
	Forwarder[T]
	domain   *lockDomain
	disposed bool
}

func (l *concurrentListener[T]) React(value T) {
	l.domain.run(func() {
		if !l.disposed {
			l.Emit(value)
		}
	})
}

func (l *concurrentListener[T]) OnDispose(source DisposalSource) {
	l.domain.run(func() {
		if l.disposed {
			return
		}
		l.disposed = true
		l.Release(source)
	})
}

// ============================================================================
// ConcurrentAll / LockAll
// ============================================================================

// ConcurrentAll 对流的流加锁：外部流和它推送的每个内部流共享同一个互斥域，
// 整棵动态流树处在同一把锁之下
func ConcurrentAll[T any](locker sync.Locker) Decorator[EventStream[T], EventStream[T]] {
	domain := newLockDomain(locker)
	inner := &concurrent[T]{domain: domain}
	return Compose(
		Decorator[EventStream[T], EventStream[T]](&concurrent[EventStream[T]]{domain: domain}),
		Map(func(stream EventStream[T]) EventStream[T] {
			return Decorate[T, T](stream, inner)
		}),
	)
}

// LockAll 与ConcurrentAll相同，使用调用方提供的*sync.Mutex
func LockAll[T any](mu *sync.Mutex) Decorator[EventStream[T], EventStream[T]] {
	if mu == nil {
		return ConcurrentAll[T](nil)
	}
	return ConcurrentAll[T](mu)
}

// ============================================================================
// ObserveOn
// ============================================================================

type observeOn[T any] struct {
	scheduler Scheduler
}

// ObserveOn 把React和OnDispose投递到scheduler执行。
// 投递顺序与调用顺序一致，但与调用方不同步；顺序保证取决于scheduler本身。
func ObserveOn[T any](scheduler Scheduler) Decorator[T, T] {
	return &observeOn[T]{scheduler: scheduler}
}

func (d *observeOn[T]) Decorate(next Listener[T], _ Subscriber) Listener[T] {
	return &observeOnListener[T]{Forwarder: Forwarder[T]{Next: next}, scheduler: d.scheduler}
}

type observeOnListener[T any] struct {
	Forwarder[T]
	scheduler Scheduler
}

func (l *observeOnListener[T]) React(value T) {
	l.scheduler.Schedule(func() {
		l.Emit(value)
	})
}

func (l *observeOnListener[T]) OnDispose(source DisposalSource) {
	l.scheduler.Schedule(func() {
		l.Release(source)
	})
}
