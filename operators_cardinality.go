// Bounded-cardinality operators for rxstream
// 数量约束操作符：Take/Skip/Last/Single/ElementAt等，通过释放自己的订阅提前结束
package rxstream

// ============================================================================
// Take / First
// ============================================================================

type take[T any] struct {
	count int
}

// Take 转发前count个值后释放自己的订阅；count<=0时立即释放
func Take[T any](count int) Decorator[T, T] {
	return &take[T]{count: count}
}

// First 只转发第一个值
func First[T any]() Decorator[T, T] {
	return Take[T](1)
}

func (d *take[T]) Decorate(next Listener[T], subscriber Subscriber) Listener[T] {
	l := &takeListener[T]{
		Forwarder:  Forwarder[T]{Next: next},
		subscriber: subscriber,
		remaining:  d.count,
	}
	if d.count <= 0 {
		subscriber.Dispose()
	}
	return l
}

type takeListener[T any] struct {
	Forwarder[T]
	subscriber Subscriber
	remaining  int
}

func (l *takeListener[T]) React(value T) {
	if l.IsReleased() || l.remaining <= 0 {
		return
	}
	l.remaining--
	l.Emit(value)
	if l.remaining == 0 {
		l.subscriber.Dispose()
	}
}

// ============================================================================
// TakeLast / Last
// ============================================================================

type takeLast[T any] struct {
	count int
}

// TakeLast 保留最后count个值，释放时依次发出
func TakeLast[T any](count int) Decorator[T, T] {
	return &takeLast[T]{count: count}
}

// Last 释放时发出最后一个值
func Last[T any]() Decorator[T, T] {
	return TakeLast[T](1)
}

func (d *takeLast[T]) Decorate(next Listener[T], _ Subscriber) Listener[T] {
	return &takeLastListener[T]{
		Forwarder: Forwarder[T]{Next: next},
		count:     d.count,
		window:    NewQueue[T](min(max(d.count, 1), 64)),
	}
}

type takeLastListener[T any] struct {
	Forwarder[T]
	count  int
	window *Queue[T]
}

func (l *takeLastListener[T]) React(value T) {
	if l.IsReleased() || l.count <= 0 {
		return
	}
	if l.window.Len() == l.count {
		l.window.Pop()
	}
	l.window.Push(value)
}

func (l *takeLastListener[T]) OnDispose(source DisposalSource) {
	if l.IsReleased() {
		return
	}
	for {
		value, ok := l.window.Pop()
		if !ok {
			break
		}
		l.Emit(value)
	}
	l.window.Clear()
	l.Release(source)
}

// ============================================================================
// Skip
// ============================================================================

type skip[T any] struct {
	count int
}

// Skip 丢弃前count个值
func Skip[T any](count int) Decorator[T, T] {
	return &skip[T]{count: count}
}

func (d *skip[T]) Decorate(next Listener[T], _ Subscriber) Listener[T] {
	if d.count <= 0 {
		return next
	}
	return &skipListener[T]{Forwarder: Forwarder[T]{Next: next}, remaining: d.count}
}

type skipListener[T any] struct {
	Forwarder[T]
	remaining int
}

func (l *skipListener[T]) React(value T) {
	if l.remaining > 0 {
		l.remaining--
		return
	}
	l.Emit(value)
}

// ============================================================================
// SkipLast
// ============================================================================

type skipLast[T any] struct {
	count int
}

// SkipLast 丢弃最后count个值：排队的值超过count个时才发出最早的那个，
// 释放时队列中剩余的值被丢弃
func SkipLast[T any](count int) Decorator[T, T] {
	return &skipLast[T]{count: count}
}

func (d *skipLast[T]) Decorate(next Listener[T], _ Subscriber) Listener[T] {
	if d.count <= 0 {
		return next
	}
	return &skipLastListener[T]{
		Forwarder: Forwarder[T]{Next: next},
		count:     d.count,
		pending:   NewQueue[T](min(d.count+1, 64)),
	}
}

type skipLastListener[T any] struct {
	Forwarder[T]
	count   int
	pending *Queue[T]
}

func (l *skipLastListener[T]) React(value T) {
	if l.IsReleased() {
		return
	}
	l.pending.Push(value)
	if l.pending.Len() > l.count {
		oldest, _ := l.pending.Pop()
		l.Emit(oldest)
	}
}

func (l *skipLastListener[T]) OnDispose(source DisposalSource) {
	l.pending.Clear()
	l.Release(source)
}

// ============================================================================
// Single
// ============================================================================

type single[T any] struct{}

// Single 只在源恰好推送一个值时于释放时发出它；
// 收到第二个值时丢弃已缓存的值并释放自己的订阅
func Single[T any]() Decorator[T, T] {
	return single[T]{}
}

func (single[T]) Decorate(next Listener[T], subscriber Subscriber) Listener[T] {
	return &singleListener[T]{Forwarder: Forwarder[T]{Next: next}, subscriber: subscriber}
}

type singleListener[T any] struct {
	Forwarder[T]
	subscriber Subscriber
	pending    Optional[T]
	rejected   bool
}

func (l *singleListener[T]) React(value T) {
	if l.IsReleased() || l.rejected {
		return
	}
	if l.pending.HasValue() {
		l.rejected = true
		l.pending.Clear()
		l.subscriber.Dispose()
		return
	}
	l.pending.Set(value)
}

func (l *singleListener[T]) OnDispose(source DisposalSource) {
	if l.IsReleased() {
		return
	}
	l.pending.TryForwardTo(&l.Forwarder)
	l.Release(source)
}

// ============================================================================
// ElementAt
// ============================================================================

type elementAt[T any] struct {
	index int
}

// ElementAt 只转发第index个值（从0开始），然后释放自己的订阅；index<0时立即释放
func ElementAt[T any](index int) Decorator[T, T] {
	return &elementAt[T]{index: index}
}

func (d *elementAt[T]) Decorate(next Listener[T], subscriber Subscriber) Listener[T] {
	l := &elementAtListener[T]{
		Forwarder:  Forwarder[T]{Next: next},
		subscriber: subscriber,
		index:      d.index,
	}
	if d.index < 0 {
		subscriber.Dispose()
	}
	return l
}

type elementAtListener[T any] struct {
	Forwarder[T]
	subscriber Subscriber
	index      int
	seen       int
}

func (l *elementAtListener[T]) React(value T) {
	if l.IsReleased() || l.index < 0 || l.seen > l.index {
		return
	}
	current := l.seen
	l.seen++
	if current == l.index {
		l.Emit(value)
		l.subscriber.Dispose()
	}
}

// ============================================================================
// TakeWhile / SkipWhile
// ============================================================================

type takeWhile[T any] struct {
	predicate func(T) bool
}

// TakeWhile 转发满足predicate的值，遇到第一个不满足的值时释放自己的订阅
func TakeWhile[T any](predicate func(T) bool) Decorator[T, T] {
	return &takeWhile[T]{predicate: predicate}
}

func (d *takeWhile[T]) Decorate(next Listener[T], subscriber Subscriber) Listener[T] {
	return &takeWhileListener[T]{
		Forwarder:  Forwarder[T]{Next: next},
		predicate:  d.predicate,
		subscriber: subscriber,
	}
}

type takeWhileListener[T any] struct {
	Forwarder[T]
	predicate  func(T) bool
	subscriber Subscriber
	done       bool
}

func (l *takeWhileListener[T]) React(value T) {
	if l.IsReleased() || l.done {
		return
	}
	if !l.predicate(value) {
		l.done = true
		l.subscriber.Dispose()
		return
	}
	l.Emit(value)
}

type skipWhile[T any] struct {
	predicate func(T) bool
}

// SkipWhile 丢弃满足predicate的前缀，之后全部转发
func SkipWhile[T any](predicate func(T) bool) Decorator[T, T] {
	return &skipWhile[T]{predicate: predicate}
}

func (d *skipWhile[T]) Decorate(next Listener[T], _ Subscriber) Listener[T] {
	return &skipWhileListener[T]{Forwarder: Forwarder[T]{Next: next}, predicate: d.predicate}
}

type skipWhileListener[T any] struct {
	Forwarder[T]
	predicate func(T) bool
	open      bool
}

func (l *skipWhileListener[T]) React(value T) {
	if l.IsReleased() {
		return
	}
	if !l.open {
		if l.predicate(value) {
			return
		}
		l.open = true
	}
	l.Emit(value)
}
