// Target-driven timing operators for rxstream
// 计时类操作符：不使用时钟，而是由外部目标流（target）决定何时动作
package rxstream

import "slices"

// ============================================================================
// 目标流订阅骨架
// ============================================================================

// targetLink 操作符对目标流的一次订阅。
// 目标流自身结束（FromEventSource）时级联释放操作符自己的Subscriber；
// 操作符主动close引起的FromSubscriber释放不级联。
type targetLink[U any] struct {
	handle     *LazyDisposable
	subscriber Subscriber
	fire       func(link *targetLink[U], value U)
	closed     bool
}

func newTargetLink[U any](subscriber Subscriber, fire func(*targetLink[U], U)) *targetLink[U] {
	return &targetLink[U]{
		handle:     NewLazyDisposable(),
		subscriber: subscriber,
		fire:       fire,
	}
}

// listen 订阅目标流。目标流可能在Listen返回前同步推送或结束，
// 所以调用方必须先把link记录下来再调用listen。
func (l *targetLink[U]) listen(target EventStream[U]) {
	l.handle.Assign(target.Listen(l))
}

func (l *targetLink[U]) React(value U) {
	if !l.closed {
		l.fire(l, value)
	}
}

func (l *targetLink[U]) OnDispose(source DisposalSource) {
	if l.closed {
		return
	}
	l.closed = true
	l.fire = nil
	if source == FromEventSource {
		l.subscriber.Dispose()
	}
}

// close 主动结束订阅，不级联
func (l *targetLink[U]) close() {
	l.closed = true
	l.fire = nil
	l.handle.Dispose()
}

// checkTarget 目标流已结束时立即释放操作符自己的Subscriber
func checkTarget[U any](target EventStream[U], subscriber Subscriber) bool {
	if target.IsDisposed() {
		subscriber.Dispose()
		return false
	}
	return true
}

// ============================================================================
// DebounceUntil
// ============================================================================

type debounceUntil[T, U any] struct {
	target EventStream[U]
}

// DebounceUntil 每个源值都重新订阅目标流；目标流推送时发出最近的源值
func DebounceUntil[T, U any](target EventStream[U]) Decorator[T, T] {
	return &debounceUntil[T, U]{target: target}
}

func (d *debounceUntil[T, U]) Decorate(next Listener[T], subscriber Subscriber) Listener[T] {
	l := &debounceUntilListener[T, U]{
		Forwarder:  Forwarder[T]{Next: next},
		target:     d.target,
		subscriber: subscriber,
	}
	checkTarget(d.target, subscriber)
	return l
}

type debounceUntilListener[T, U any] struct {
	Forwarder[T]
	target     EventStream[U]
	subscriber Subscriber
	link       *targetLink[U]
	last       Optional[T]
}

func (l *debounceUntilListener[T, U]) React(value T) {
	if l.IsReleased() {
		return
	}
	l.last.Set(value)
	if l.link != nil {
		l.link.close()
	}
	link := newTargetLink(l.subscriber, l.fire)
	l.link = link
	link.listen(l.target)
}

func (l *debounceUntilListener[T, U]) fire(link *targetLink[U], _ U) {
	link.close()
	if link != l.link {
		return
	}
	l.link = nil
	l.last.TryForwardTo(&l.Forwarder)
}

func (l *debounceUntilListener[T, U]) OnDispose(source DisposalSource) {
	if l.link != nil {
		l.link.close()
		l.link = nil
	}
	l.last.Clear()
	l.Release(source)
}

// ============================================================================
// ThrottleUntil
// ============================================================================

type throttleUntil[T, U any] struct {
	target EventStream[U]
}

// ThrottleUntil 立即发出一个源值，之后丢弃源值直到目标流推送
func ThrottleUntil[T, U any](target EventStream[U]) Decorator[T, T] {
	return &throttleUntil[T, U]{target: target}
}

func (d *throttleUntil[T, U]) Decorate(next Listener[T], subscriber Subscriber) Listener[T] {
	l := &throttleUntilListener[T, U]{
		Forwarder:  Forwarder[T]{Next: next},
		target:     d.target,
		subscriber: subscriber,
	}
	checkTarget(d.target, subscriber)
	return l
}

type throttleUntilListener[T, U any] struct {
	Forwarder[T]
	target     EventStream[U]
	subscriber Subscriber
	link       *targetLink[U]
}

func (l *throttleUntilListener[T, U]) React(value T) {
	if l.IsReleased() || l.link != nil {
		return
	}
	link := newTargetLink(l.subscriber, l.fire)
	l.link = link
	l.Emit(value)
	if l.IsReleased() || link.closed {
		return
	}
	link.listen(l.target)
}

func (l *throttleUntilListener[T, U]) fire(link *targetLink[U], _ U) {
	link.close()
	if link == l.link {
		l.link = nil
	}
}

func (l *throttleUntilListener[T, U]) OnDispose(source DisposalSource) {
	if l.link != nil {
		l.link.close()
		l.link = nil
	}
	l.Release(source)
}

// ============================================================================
// AuditUntil
// ============================================================================

type auditUntil[T, U any] struct {
	target EventStream[U]
}

// AuditUntil 第一个源值开始等待目标流，期间持续更新待发值；
// 目标流推送时发出最近的源值（不一定是触发等待的那个）
func AuditUntil[T, U any](target EventStream[U]) Decorator[T, T] {
	return &auditUntil[T, U]{target: target}
}

func (d *auditUntil[T, U]) Decorate(next Listener[T], subscriber Subscriber) Listener[T] {
	l := &auditUntilListener[T, U]{
		Forwarder:  Forwarder[T]{Next: next},
		target:     d.target,
		subscriber: subscriber,
	}
	checkTarget(d.target, subscriber)
	return l
}

type auditUntilListener[T, U any] struct {
	Forwarder[T]
	target     EventStream[U]
	subscriber Subscriber
	link       *targetLink[U]
	last       Optional[T]
}

func (l *auditUntilListener[T, U]) React(value T) {
	if l.IsReleased() {
		return
	}
	l.last.Set(value)
	if l.link != nil {
		return
	}
	link := newTargetLink(l.subscriber, l.fire)
	l.link = link
	link.listen(l.target)
}

func (l *auditUntilListener[T, U]) fire(link *targetLink[U], _ U) {
	link.close()
	if link != l.link {
		return
	}
	l.link = nil
	l.last.TryForwardTo(&l.Forwarder)
}

func (l *auditUntilListener[T, U]) OnDispose(source DisposalSource) {
	if l.link != nil {
		l.link.close()
		l.link = nil
	}
	l.last.Clear()
	l.Release(source)
}

// ============================================================================
// SampleWhen
// ============================================================================

type sampleWhen[T, U any] struct {
	target EventStream[U]
}

// SampleWhen 持续订阅目标流，每次推送时发出最近的源值（如果有）并清空
func SampleWhen[T, U any](target EventStream[U]) Decorator[T, T] {
	return &sampleWhen[T, U]{target: target}
}

func (d *sampleWhen[T, U]) Decorate(next Listener[T], subscriber Subscriber) Listener[T] {
	l := &sampleWhenListener[T, U]{Forwarder: Forwarder[T]{Next: next}}
	if checkTarget(d.target, subscriber) {
		l.link = newTargetLink(subscriber, l.fire)
		l.link.listen(d.target)
	}
	return l
}

type sampleWhenListener[T, U any] struct {
	Forwarder[T]
	link *targetLink[U]
	last Optional[T]
}

func (l *sampleWhenListener[T, U]) React(value T) {
	if !l.IsReleased() {
		l.last.Set(value)
	}
}

func (l *sampleWhenListener[T, U]) fire(_ *targetLink[U], _ U) {
	l.last.TryForwardTo(&l.Forwarder)
}

func (l *sampleWhenListener[T, U]) OnDispose(source DisposalSource) {
	if l.link != nil {
		l.link.close()
		l.link = nil
	}
	l.last.Clear()
	l.Release(source)
}

// ============================================================================
// SkipUntil
// ============================================================================

type skipUntil[T, U any] struct {
	target EventStream[U]
}

// SkipUntil 目标流第一次推送前丢弃所有源值，之后一直转发
func SkipUntil[T, U any](target EventStream[U]) Decorator[T, T] {
	return &skipUntil[T, U]{target: target}
}

func (d *skipUntil[T, U]) Decorate(next Listener[T], subscriber Subscriber) Listener[T] {
	l := &skipUntilListener[T, U]{Forwarder: Forwarder[T]{Next: next}}
	if checkTarget(d.target, subscriber) {
		l.link = newTargetLink(subscriber, l.fire)
		l.link.listen(d.target)
	}
	return l
}

type skipUntilListener[T, U any] struct {
	Forwarder[T]
	link *targetLink[U]
	open bool
}

func (l *skipUntilListener[T, U]) React(value T) {
	if l.open {
		l.Emit(value)
	}
}

func (l *skipUntilListener[T, U]) fire(link *targetLink[U], _ U) {
	l.open = true
	link.close()
	l.link = nil
}

func (l *skipUntilListener[T, U]) OnDispose(source DisposalSource) {
	if l.link != nil {
		l.link.close()
		l.link = nil
	}
	l.Release(source)
}

// ============================================================================
// TakeUntil
// ============================================================================

type takeUntil[T, U any] struct {
	target EventStream[U]
}

// TakeUntil 转发源值直到目标流推送或结束，然后释放自己的订阅
func TakeUntil[T, U any](target EventStream[U]) Decorator[T, T] {
	return &takeUntil[T, U]{target: target}
}

func (d *takeUntil[T, U]) Decorate(next Listener[T], subscriber Subscriber) Listener[T] {
	l := &takeUntilListener[T, U]{Forwarder: Forwarder[T]{Next: next}, subscriber: subscriber}
	if checkTarget(d.target, subscriber) {
		l.link = newTargetLink(subscriber, l.fire)
		l.link.listen(d.target)
	}
	return l
}

type takeUntilListener[T, U any] struct {
	Forwarder[T]
	subscriber Subscriber
	link       *targetLink[U]
}

func (l *takeUntilListener[T, U]) fire(link *targetLink[U], _ U) {
	link.close()
	l.link = nil
	l.subscriber.Dispose()
}

func (l *takeUntilListener[T, U]) OnDispose(source DisposalSource) {
	if l.link != nil {
		l.link.close()
		l.link = nil
	}
	l.Release(source)
}

// ============================================================================
// DistinctUntil
// ============================================================================

type distinctUntil[T any, K comparable, U any] struct {
	keySelector func(T) K
	target      EventStream[U]
}

// DistinctUntil 只转发未见过的值，目标流每次推送都清空已见集合
func DistinctUntil[T comparable, U any](target EventStream[U]) Decorator[T, T] {
	return &distinctUntil[T, T, U]{keySelector: identity[T], target: target}
}

// DistinctByUntil 按keySelector去重，目标流每次推送都清空已见集合
func DistinctByUntil[T any, K comparable, U any](keySelector func(T) K, target EventStream[U]) Decorator[T, T] {
	return &distinctUntil[T, K, U]{keySelector: keySelector, target: target}
}

func (d *distinctUntil[T, K, U]) Decorate(next Listener[T], subscriber Subscriber) Listener[T] {
	l := &distinctUntilListener[T, K, U]{
		Forwarder:   Forwarder[T]{Next: next},
		keySelector: d.keySelector,
		seen:        make(map[K]struct{}),
	}
	if checkTarget(d.target, subscriber) {
		l.link = newTargetLink(subscriber, l.fire)
		l.link.listen(d.target)
	}
	return l
}

type distinctUntilListener[T any, K comparable, U any] struct {
	Forwarder[T]
	keySelector func(T) K
	link        *targetLink[U]
	seen        map[K]struct{}
}

func (l *distinctUntilListener[T, K, U]) React(value T) {
	if l.IsReleased() {
		return
	}
	key := l.keySelector(value)
	if _, ok := l.seen[key]; ok {
		return
	}
	l.seen[key] = struct{}{}
	l.Emit(value)
}

func (l *distinctUntilListener[T, K, U]) fire(_ *targetLink[U], _ U) {
	clear(l.seen)
}

func (l *distinctUntilListener[T, K, U]) OnDispose(source DisposalSource) {
	if l.link != nil {
		l.link.close()
		l.link = nil
	}
	l.seen = nil
	l.Release(source)
}

// ============================================================================
// BufferUntil
// ============================================================================

type bufferUntil[T, U any] struct {
	target EventStream[U]
}

// BufferUntil 累积源值，目标流每次推送时把已累积的值作为一次发出并清空；
// 释放时发出剩余的值
func BufferUntil[T, U any](target EventStream[U]) Decorator[T, []T] {
	return &bufferUntil[T, U]{target: target}
}

func (d *bufferUntil[T, U]) Decorate(next Listener[[]T], subscriber Subscriber) Listener[T] {
	l := &bufferUntilListener[T, U]{
		Forwarder: Forwarder[[]T]{Next: next},
		buffer:    NewGrowingBuffer[T](16),
	}
	if checkTarget(d.target, subscriber) {
		l.link = newTargetLink(subscriber, l.fire)
		l.link.listen(d.target)
	}
	return l
}

type bufferUntilListener[T, U any] struct {
	Forwarder[[]T]
	link   *targetLink[U]
	buffer *GrowingBuffer[T]
}

func (l *bufferUntilListener[T, U]) React(value T) {
	if !l.IsReleased() {
		l.buffer.Add(value)
	}
}

func (l *bufferUntilListener[T, U]) fire(_ *targetLink[U], _ U) {
	l.flush()
}

func (l *bufferUntilListener[T, U]) flush() {
	if l.buffer.Len() == 0 {
		return
	}
	chunk := slices.Clone(l.buffer.AsMemory())
	l.buffer.Clear()
	l.Emit(chunk)
}

func (l *bufferUntilListener[T, U]) OnDispose(source DisposalSource) {
	if l.IsReleased() {
		return
	}
	if l.link != nil {
		l.link.close()
		l.link = nil
	}
	l.flush()
	l.buffer.RemoveAll()
	l.Release(source)
}

func identity[T any](value T) T {
	return value
}
