// Transform and filter operators for rxstream
// 转换与过滤操作符
package rxstream

import lru "github.com/hashicorp/golang-lru/v2"

// ============================================================================
// Map / Filter / Scan
// ============================================================================

type mapper[T, R any] struct {
	selector func(T) R
}

// Map 用selector转换每个值
func Map[T, R any](selector func(T) R) Decorator[T, R] {
	return &mapper[T, R]{selector: selector}
}

func (d *mapper[T, R]) Decorate(next Listener[R], _ Subscriber) Listener[T] {
	return &mapListener[T, R]{Forwarder: Forwarder[R]{Next: next}, selector: d.selector}
}

type mapListener[T, R any] struct {
	Forwarder[R]
	selector func(T) R
}

func (l *mapListener[T, R]) React(value T) {
	if !l.IsReleased() {
		l.Emit(l.selector(value))
	}
}

type filter[T any] struct {
	predicate func(T) bool
}

// Filter 只转发满足predicate的值
func Filter[T any](predicate func(T) bool) Decorator[T, T] {
	return &filter[T]{predicate: predicate}
}

func (d *filter[T]) Decorate(next Listener[T], _ Subscriber) Listener[T] {
	return &filterListener[T]{Forwarder: Forwarder[T]{Next: next}, predicate: d.predicate}
}

type filterListener[T any] struct {
	Forwarder[T]
	predicate func(T) bool
}

func (l *filterListener[T]) React(value T) {
	if !l.IsReleased() && l.predicate(value) {
		l.Emit(value)
	}
}

type scan[T, R any] struct {
	seed        R
	accumulator func(R, T) R
}

// Scan 累积并发出每一步的中间结果
func Scan[T, R any](seed R, accumulator func(R, T) R) Decorator[T, R] {
	return &scan[T, R]{seed: seed, accumulator: accumulator}
}

func (d *scan[T, R]) Decorate(next Listener[R], _ Subscriber) Listener[T] {
	return &scanListener[T, R]{Forwarder: Forwarder[R]{Next: next}, state: d.seed, accumulator: d.accumulator}
}

type scanListener[T, R any] struct {
	Forwarder[R]
	state       R
	accumulator func(R, T) R
}

func (l *scanListener[T, R]) React(value T) {
	if l.IsReleased() {
		return
	}
	l.state = l.accumulator(l.state, value)
	l.Emit(l.state)
}

func (l *scanListener[T, R]) OnDispose(source DisposalSource) {
	var zero R
	l.state = zero
	l.Release(source)
}

// ============================================================================
// StartWith / EndWith
// ============================================================================

type startWith[T any] struct {
	values []T
}

// StartWith 在订阅时先发出values；没有values时不做任何包装
func StartWith[T any](values ...T) Decorator[T, T] {
	return &startWith[T]{values: values}
}

func (d *startWith[T]) Decorate(next Listener[T], subscriber Subscriber) Listener[T] {
	for _, value := range d.values {
		if subscriber.IsDisposed() {
			break
		}
		next.React(value)
	}
	return next
}

type endWith[T any] struct {
	values []T
}

// EndWith 上游自然结束（FromEventSource）时在释放前追加values；没有values时不做任何包装
func EndWith[T any](values ...T) Decorator[T, T] {
	return &endWith[T]{values: values}
}

func (d *endWith[T]) Decorate(next Listener[T], _ Subscriber) Listener[T] {
	if len(d.values) == 0 {
		return next
	}
	return &endWithListener[T]{Forwarder: Forwarder[T]{Next: next}, values: d.values}
}

type endWithListener[T any] struct {
	Forwarder[T]
	values []T
}

func (l *endWithListener[T]) OnDispose(source DisposalSource) {
	if l.IsReleased() {
		return
	}
	if source == FromEventSource {
		for _, value := range l.values {
			l.Emit(value)
		}
	}
	l.values = nil
	l.Release(source)
}

// ============================================================================
// Distinct
// ============================================================================

type distinct[T any, K comparable] struct {
	keySelector func(T) K
}

// Distinct 只转发订阅期间第一次出现的值
func Distinct[T comparable]() Decorator[T, T] {
	return &distinct[T, T]{keySelector: identity[T]}
}

// DistinctBy 按keySelector去重
func DistinctBy[T any, K comparable](keySelector func(T) K) Decorator[T, T] {
	return &distinct[T, K]{keySelector: keySelector}
}

func (d *distinct[T, K]) Decorate(next Listener[T], _ Subscriber) Listener[T] {
	return &distinctListener[T, K]{
		Forwarder:   Forwarder[T]{Next: next},
		keySelector: d.keySelector,
		seen:        make(map[K]struct{}),
	}
}

type distinctListener[T any, K comparable] struct {
	Forwarder[T]
	keySelector func(T) K
	seen        map[K]struct{}
}

func (l *distinctListener[T, K]) React(value T) {
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

func (l *distinctListener[T, K]) OnDispose(source DisposalSource) {
	l.seen = nil
	l.Release(source)
}

type distinctUntilChanged[T any, K comparable] struct {
	keySelector func(T) K
}

// DistinctUntilChanged 丢弃与前一个值相同的值
func DistinctUntilChanged[T comparable]() Decorator[T, T] {
	return &distinctUntilChanged[T, T]{keySelector: identity[T]}
}

// DistinctUntilKeyChanged 丢弃键与前一个值相同的值
func DistinctUntilKeyChanged[T any, K comparable](keySelector func(T) K) Decorator[T, T] {
	return &distinctUntilChanged[T, K]{keySelector: keySelector}
}

func (d *distinctUntilChanged[T, K]) Decorate(next Listener[T], _ Subscriber) Listener[T] {
	return &distinctUntilChangedListener[T, K]{Forwarder: Forwarder[T]{Next: next}, keySelector: d.keySelector}
}

type distinctUntilChangedListener[T any, K comparable] struct {
	Forwarder[T]
	keySelector func(T) K
	previous    Optional[K]
}

func (l *distinctUntilChangedListener[T, K]) React(value T) {
	if l.IsReleased() {
		return
	}
	key := l.keySelector(value)
	if previous, ok := l.previous.Get(); ok && previous == key {
		return
	}
	l.previous.Set(key)
	l.Emit(value)
}

type distinctWithin[T comparable] struct {
	size int
}

// DistinctWithin 只在最近放行的size个值范围内去重，更早的值被淘汰后可以再次通过；
// 被拦下的重复值不会刷新它在窗口中的位置
func DistinctWithin[T comparable](size int) Decorator[T, T] {
	if size < 1 {
		panic(ErrInvalidCount)
	}
	return &distinctWithin[T]{size: size}
}

func (d *distinctWithin[T]) Decorate(next Listener[T], _ Subscriber) Listener[T] {
	// size已在构造时校验，New只会因size<=0失败
	recent, _ := lru.New[T, struct{}](d.size)
	return &distinctWithinListener[T]{Forwarder: Forwarder[T]{Next: next}, recent: recent}
}

type distinctWithinListener[T comparable] struct {
	Forwarder[T]
	recent *lru.Cache[T, struct{}]
}

func (l *distinctWithinListener[T]) React(value T) {
	if l.IsReleased() {
		return
	}
	if seen, _ := l.recent.ContainsOrAdd(value, struct{}{}); seen {
		return
	}
	l.Emit(value)
}

func (l *distinctWithinListener[T]) OnDispose(source DisposalSource) {
	if l.recent != nil {
		l.recent.Purge()
		l.recent = nil
	}
	l.Release(source)
}
