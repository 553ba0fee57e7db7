package rxstream

import (
	"sync"
	"sync/atomic"
)

// ============================================================================
// 基础可释放资源
// ============================================================================

// actionDisposable 释放时执行一次动作
type actionDisposable struct {
	disposed atomic.Bool
	action   func()
}

// NewDisposable 创建释放时执行action的Disposable，action只会执行一次
func NewDisposable(action func()) Disposable {
	return &actionDisposable{action: action}
}

// Dispose 释放资源
func (d *actionDisposable) Dispose() {
	if d.disposed.CompareAndSwap(false, true) {
		if d.action != nil {
			d.action()
			d.action = nil
		}
	}
}

// IsDisposed 检查是否已释放
func (d *actionDisposable) IsDisposed() bool {
	return d.disposed.Load()
}

// disposedSubscriber 已经释放的订阅句柄
type disposedSubscriber struct{}

func (disposedSubscriber) Dispose()         {}
func (disposedSubscriber) IsDisposed() bool { return true }

// ============================================================================
// 延迟绑定句柄
// ============================================================================

// LazyDisposable 延迟绑定的订阅句柄。
// 在Assign之前就可以Dispose：事件流可能在Listen返回前同步推送或结束，
// 这时的释放会被记录下来，等真正的订阅句柄Assign进来时立即释放它。
type LazyDisposable struct {
	mu        sync.Mutex
	inner     Subscriber
	disposed  bool
	replaced  bool
	bound     bool
	onPending func()
}

// NewLazyDisposable 创建延迟绑定句柄
func NewLazyDisposable() *LazyDisposable {
	return &LazyDisposable{}
}

// Assign 绑定内部订阅，已释放时立即释放inner。
// 句柄已被Replace过时忽略inner：它属于已经结束的上游。
func (d *LazyDisposable) Assign(inner Subscriber) {
	if inner == nil {
		return
	}
	d.mu.Lock()
	d.bound = true
	d.onPending = nil
	if d.disposed {
		d.mu.Unlock()
		inner.Dispose()
		return
	}
	if !d.replaced {
		d.inner = inner
	}
	d.mu.Unlock()
}

// Replace 改为绑定接续的订阅，之后的Assign不再覆盖它
func (d *LazyDisposable) Replace(inner Subscriber) {
	d.mu.Lock()
	d.bound = true
	d.onPending = nil
	if d.disposed {
		d.mu.Unlock()
		inner.Dispose()
		return
	}
	d.inner = inner
	d.replaced = true
	d.mu.Unlock()
}

// OnPendingDispose 设置在Assign或Replace之前被释放时执行的回调，最多执行一次；
// 句柄已经在绑定前被释放时立即执行，已经绑定时忽略
func (d *LazyDisposable) OnPendingDispose(action func()) {
	d.mu.Lock()
	if d.bound {
		d.mu.Unlock()
		return
	}
	if d.disposed {
		d.mu.Unlock()
		action()
		return
	}
	d.onPending = action
	d.mu.Unlock()
}

// Dispose 释放绑定的订阅，可重复调用
func (d *LazyDisposable) Dispose() {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}
	d.disposed = true
	inner, onPending := d.inner, d.onPending
	d.inner, d.onPending = nil, nil
	d.mu.Unlock()

	if inner != nil {
		inner.Dispose()
		return
	}
	if onPending != nil {
		onPending()
	}
}

// IsDisposed 句柄本身已释放，或绑定的订阅已经结束
func (d *LazyDisposable) IsDisposed() bool {
	d.mu.Lock()
	disposed, inner := d.disposed, d.inner
	d.mu.Unlock()
	return disposed || (inner != nil && inner.IsDisposed())
}

// ============================================================================
// 组合式资源管理
// ============================================================================

// CompositeDisposable 组合式资源管理器
type CompositeDisposable struct {
	mu        sync.Mutex
	disposed  bool
	resources []Disposable
}

// NewCompositeDisposable 创建组合式资源管理器
func NewCompositeDisposable(resources ...Disposable) *CompositeDisposable {
	return &CompositeDisposable{resources: resources}
}

// Add 添加可释放资源，已释放时立即释放它
func (cd *CompositeDisposable) Add(disposable Disposable) {
	cd.mu.Lock()
	if cd.disposed {
		cd.mu.Unlock()
		disposable.Dispose()
		return
	}
	cd.resources = append(cd.resources, disposable)
	cd.mu.Unlock()
}

// Dispose 释放所有资源
func (cd *CompositeDisposable) Dispose() {
	cd.mu.Lock()
	if cd.disposed {
		cd.mu.Unlock()
		return
	}
	cd.disposed = true
	resources := cd.resources
	cd.resources = nil
	cd.mu.Unlock()

	for _, resource := range resources {
		resource.Dispose()
	}
}

// IsDisposed 检查是否已释放
func (cd *CompositeDisposable) IsDisposed() bool {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	return cd.disposed
}
