// Inner-stream flattening operators for rxstream
// 展平与组合操作符：MergeAll、SwitchAll、ExhaustAll、ContinueWith、Zip
package rxstream

import "go.uber.org/zap"

// ============================================================================
// 内部订阅
// ============================================================================

// innerSubscription 操作符对某个内部流的订阅
type innerSubscription[T any] struct {
	handle  *LazyDisposable
	key     SlotKey
	onReact func(T)
	onDone  func(inner *innerSubscription[T])
	muted   bool
	done    bool
}

func newInnerSubscription[T any](onReact func(T), onDone func(*innerSubscription[T])) *innerSubscription[T] {
	return &innerSubscription[T]{handle: NewLazyDisposable(), onReact: onReact, onDone: onDone}
}

func (s *innerSubscription[T]) listen(stream EventStream[T]) {
	s.handle.Assign(stream.Listen(s))
}

func (s *innerSubscription[T]) React(value T) {
	if !s.done && !s.muted {
		s.onReact(value)
	}
}

func (s *innerSubscription[T]) OnDispose(_ DisposalSource) {
	if s.done {
		return
	}
	s.done = true
	onDone := s.onDone
	s.onReact, s.onDone = nil, nil
	onDone(s)
}

// mute 请求释放，之后的值被丢弃，但仍等待释放通知
func (s *innerSubscription[T]) mute() {
	s.muted = true
	s.handle.Dispose()
}

// cancel 释放且不再回调
func (s *innerSubscription[T]) cancel() {
	s.done = true
	s.onReact, s.onDone = nil, nil
	s.handle.Dispose()
}

// ============================================================================
// MergeAll / ConcatAll
// ============================================================================

type mergeAll[T any] struct {
	maxConcurrency int
}

// MergeAll 同时订阅最多maxConcurrency个内部流（<=0不限），其余排队等待空位。
// 外部流结束时释放全部活跃的内部订阅并丢弃队列。
func MergeAll[T any](maxConcurrency int) Decorator[EventStream[T], T] {
	return &mergeAll[T]{maxConcurrency: maxConcurrency}
}

// ConcatAll 依次订阅内部流
func ConcatAll[T any]() Decorator[EventStream[T], T] {
	return MergeAll[T](1)
}

func (d *mergeAll[T]) Decorate(next Listener[T], _ Subscriber) Listener[EventStream[T]] {
	return &mergeAllListener[T]{
		Forwarder:      Forwarder[T]{Next: next},
		maxConcurrency: d.maxConcurrency,
		pending:        NewQueue[EventStream[T]](4),
	}
}

type mergeAllListener[T any] struct {
	Forwarder[T]
	maxConcurrency int
	active         SlotMap[*innerSubscription[T]]
	pending        *Queue[EventStream[T]]
}

func (l *mergeAllListener[T]) React(stream EventStream[T]) {
	if l.IsReleased() {
		return
	}
	if l.maxConcurrency > 0 && l.active.Len() >= l.maxConcurrency {
		l.pending.Push(stream)
		Logger().Debug("merge: inner stream queued", zap.Int("pending", l.pending.Len()))
		return
	}
	l.subscribe(stream)
}

func (l *mergeAllListener[T]) subscribe(stream EventStream[T]) {
	inner := newInnerSubscription(l.Emit, l.innerDone)
	inner.key = l.active.Insert(inner)
	inner.listen(stream)
}

func (l *mergeAllListener[T]) innerDone(inner *innerSubscription[T]) {
	l.active.Remove(inner.key)
	if l.IsReleased() {
		return
	}
	if stream, ok := l.pending.Pop(); ok {
		l.subscribe(stream)
	}
}

func (l *mergeAllListener[T]) OnDispose(source DisposalSource) {
	if l.IsReleased() {
		return
	}
	var inners []*innerSubscription[T]
	l.active.Range(func(_ SlotKey, inner *innerSubscription[T]) bool {
		inners = append(inners, inner)
		return true
	})
	l.active.Clear()
	l.pending.Clear()
	for _, inner := range inners {
		inner.cancel()
	}
	l.Release(source)
}

// ============================================================================
// SwitchAll
// ============================================================================

type switchAll[T any] struct{}

// SwitchAll 只订阅最新的内部流：新内部流到达时释放旧的，
// 旧订阅的释放通知到达后才订阅新的
func SwitchAll[T any]() Decorator[EventStream[T], T] {
	return switchAll[T]{}
}

func (switchAll[T]) Decorate(next Listener[T], _ Subscriber) Listener[EventStream[T]] {
	return &switchAllListener[T]{Forwarder: Forwarder[T]{Next: next}}
}

type switchAllListener[T any] struct {
	Forwarder[T]
	active      *innerSubscription[T]
	pendingNext Optional[EventStream[T]]
}

func (l *switchAllListener[T]) React(stream EventStream[T]) {
	if l.IsReleased() {
		return
	}
	if l.active != nil {
		l.pendingNext.Set(stream)
		l.active.mute()
		return
	}
	l.subscribe(stream)
}

func (l *switchAllListener[T]) subscribe(stream EventStream[T]) {
	inner := newInnerSubscription(l.Emit, l.innerDone)
	l.active = inner
	inner.listen(stream)
}

func (l *switchAllListener[T]) innerDone(inner *innerSubscription[T]) {
	if inner != l.active {
		return
	}
	l.active = nil
	if l.IsReleased() {
		return
	}
	if stream, ok := l.pendingNext.Take(); ok {
		l.subscribe(stream)
	}
}

func (l *switchAllListener[T]) OnDispose(source DisposalSource) {
	if l.IsReleased() {
		return
	}
	l.pendingNext.Clear()
	if active := l.active; active != nil {
		l.active = nil
		active.cancel()
	}
	l.Release(source)
}

// ============================================================================
// ExhaustAll
// ============================================================================

type exhaustAll[T any] struct{}

// ExhaustAll 已有活跃内部流时忽略新到达的内部流
func ExhaustAll[T any]() Decorator[EventStream[T], T] {
	return exhaustAll[T]{}
}

func (exhaustAll[T]) Decorate(next Listener[T], _ Subscriber) Listener[EventStream[T]] {
	return &exhaustAllListener[T]{Forwarder: Forwarder[T]{Next: next}}
}

type exhaustAllListener[T any] struct {
	Forwarder[T]
	active *innerSubscription[T]
}

func (l *exhaustAllListener[T]) React(stream EventStream[T]) {
	if l.IsReleased() || l.active != nil {
		return
	}
	inner := newInnerSubscription(l.Emit, l.innerDone)
	l.active = inner
	inner.listen(stream)
}

func (l *exhaustAllListener[T]) innerDone(inner *innerSubscription[T]) {
	if inner == l.active {
		l.active = nil
	}
}

func (l *exhaustAllListener[T]) OnDispose(source DisposalSource) {
	if l.IsReleased() {
		return
	}
	if active := l.active; active != nil {
		l.active = nil
		active.cancel()
	}
	l.Release(source)
}

// ============================================================================
// ContinueWith
// ============================================================================

type continueWith[T, R any] struct {
	continuation func(T) EventStream[R]
}

// ContinueWith 只记住外部流的最后一个值；外部流释放时用它创建新流，
// 并把下游Listener直接接到新流上。外部流从未推送时直接转发释放。
func ContinueWith[T, R any](continuation func(T) EventStream[R]) Decorator[T, R] {
	return &continueWith[T, R]{continuation: continuation}
}

func (d *continueWith[T, R]) Decorate(next Listener[R], subscriber Subscriber) Listener[T] {
	return &continueWithListener[T, R]{
		Forwarder:    Forwarder[R]{Next: next},
		continuation: d.continuation,
		subscriber:   subscriber,
	}
}

type continueWithListener[T, R any] struct {
	Forwarder[R]
	continuation func(T) EventStream[R]
	subscriber   Subscriber
	last         Optional[T]
}

func (l *continueWithListener[T, R]) React(value T) {
	if !l.IsReleased() {
		l.last.Set(value)
	}
}

func (l *continueWithListener[T, R]) OnDispose(source DisposalSource) {
	if l.IsReleased() {
		return
	}
	value, ok := l.last.Take()
	if !ok {
		l.Release(source)
		return
	}
	next := l.Next
	l.Next = nil
	stream := l.continuation(value)
	sub := stream.Listen(next)
	// 让消费方的句柄改为释放后续流的订阅
	if replaceable, ok := l.subscriber.(Replaceable); ok {
		replaceable.Replace(sub)
	}
	l.subscriber = nil
}

// ============================================================================
// Zip
// ============================================================================

type zip[T, U, R any] struct {
	target   EventStream[U]
	combiner func(T, U) R
}

// Zip 按到达顺序把源值与目标流的值两两组合；目标流结束时释放自己的订阅
func Zip[T, U, R any](target EventStream[U], combiner func(T, U) R) Decorator[T, R] {
	return &zip[T, U, R]{target: target, combiner: combiner}
}

func (d *zip[T, U, R]) Decorate(next Listener[R], subscriber Subscriber) Listener[T] {
	l := &zipListener[T, U, R]{
		Forwarder: Forwarder[R]{Next: next},
		combiner:  d.combiner,
		left:      NewQueue[T](4),
		right:     NewQueue[U](4),
	}
	if checkTarget(d.target, subscriber) {
		l.link = newTargetLink(subscriber, l.reactRight)
		l.link.listen(d.target)
	}
	return l
}

type zipListener[T, U, R any] struct {
	Forwarder[R]
	combiner func(T, U) R
	link     *targetLink[U]
	left     *Queue[T]
	right    *Queue[U]
}

func (l *zipListener[T, U, R]) React(value T) {
	if l.IsReleased() {
		return
	}
	if other, ok := l.right.Pop(); ok {
		l.Emit(l.combiner(value, other))
		return
	}
	l.left.Push(value)
}

func (l *zipListener[T, U, R]) reactRight(_ *targetLink[U], value U) {
	if l.IsReleased() {
		return
	}
	if other, ok := l.left.Pop(); ok {
		l.Emit(l.combiner(other, value))
		return
	}
	l.right.Push(value)
}

func (l *zipListener[T, U, R]) OnDispose(source DisposalSource) {
	if l.link != nil {
		l.link.close()
		l.link = nil
	}
	l.left.Clear()
	l.right.Clear()
	l.Release(source)
}
