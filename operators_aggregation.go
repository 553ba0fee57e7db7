// Aggregation operators for rxstream
// 聚合操作符：Count、Reduce、ToSlice等，在释放时发出一个汇总值
package rxstream

// ============================================================================
// Count / Reduce / ToSlice
// ============================================================================

type reduce[T, R any] struct {
	seed        R
	accumulator func(R, T) R
}

// Reduce 累积全部值，释放时发出一次最终结果（没有值时发出seed）
func Reduce[T, R any](seed R, accumulator func(R, T) R) Decorator[T, R] {
	return &reduce[T, R]{seed: seed, accumulator: accumulator}
}

// Count 释放时发出收到的值的个数
func Count[T any]() Decorator[T, int] {
	return Reduce(0, func(n int, _ T) int { return n + 1 })
}

func (d *reduce[T, R]) Decorate(next Listener[R], _ Subscriber) Listener[T] {
	return &reduceListener[T, R]{Forwarder: Forwarder[R]{Next: next}, state: d.seed, accumulator: d.accumulator}
}

type reduceListener[T, R any] struct {
	Forwarder[R]
	state       R
	accumulator func(R, T) R
}

func (l *reduceListener[T, R]) React(value T) {
	if !l.IsReleased() {
		l.state = l.accumulator(l.state, value)
	}
}

func (l *reduceListener[T, R]) OnDispose(source DisposalSource) {
	if l.IsReleased() {
		return
	}
	result := l.state
	var zero R
	l.state = zero
	l.Emit(result)
	l.Release(source)
}

type toSlice[T any] struct{}

// ToSlice 释放时把收到的全部值作为一个切片发出
func ToSlice[T any]() Decorator[T, []T] {
	return toSlice[T]{}
}

func (toSlice[T]) Decorate(next Listener[[]T], _ Subscriber) Listener[T] {
	return &toSliceListener[T]{Forwarder: Forwarder[[]T]{Next: next}}
}

type toSliceListener[T any] struct {
	Forwarder[[]T]
	values []T
}

func (l *toSliceListener[T]) React(value T) {
	if !l.IsReleased() {
		l.values = append(l.values, value)
	}
}

func (l *toSliceListener[T]) OnDispose(source DisposalSource) {
	if l.IsReleased() {
		return
	}
	values := l.values
	l.values = nil
	if values == nil {
		values = []T{}
	}
	l.Emit(values)
	l.Release(source)
}

// ============================================================================
// DefaultIfEmpty / IgnoreElements
// ============================================================================

type defaultIfEmpty[T any] struct {
	value T
}

// DefaultIfEmpty 上游自然结束且从未推送时发出value
func DefaultIfEmpty[T any](value T) Decorator[T, T] {
	return &defaultIfEmpty[T]{value: value}
}

func (d *defaultIfEmpty[T]) Decorate(next Listener[T], _ Subscriber) Listener[T] {
	return &defaultIfEmptyListener[T]{Forwarder: Forwarder[T]{Next: next}, fallback: Some(d.value)}
}

type defaultIfEmptyListener[T any] struct {
	Forwarder[T]
	fallback Optional[T]
}

func (l *defaultIfEmptyListener[T]) React(value T) {
	if l.IsReleased() {
		return
	}
	l.fallback.Clear()
	l.Emit(value)
}

func (l *defaultIfEmptyListener[T]) OnDispose(source DisposalSource) {
	if l.IsReleased() {
		return
	}
	if source == FromEventSource {
		l.fallback.TryForwardTo(&l.Forwarder)
	}
	l.fallback.Clear()
	l.Release(source)
}

type ignoreElements[T any] struct{}

// IgnoreElements 丢弃全部值，只转发释放
func IgnoreElements[T any]() Decorator[T, T] {
	return ignoreElements[T]{}
}

func (ignoreElements[T]) Decorate(next Listener[T], _ Subscriber) Listener[T] {
	return &ignoreElementsListener[T]{Forwarder: Forwarder[T]{Next: next}}
}

type ignoreElementsListener[T any] struct {
	Forwarder[T]
}

func (*ignoreElementsListener[T]) React(T) {}
