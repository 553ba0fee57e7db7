package rxstream

// ============================================================================
// Buffer
// ============================================================================

type buffer[T any] struct {
	count int
}

// Buffer 每累积count个值发出一次；释放时先发出不足count的剩余部分
func Buffer[T any](count int) Decorator[T, []T] {
	if count < 1 {
		panic(ErrInvalidCount)
	}
	return &buffer[T]{count: count}
}

func (d *buffer[T]) Decorate(next Listener[[]T], _ Subscriber) Listener[T] {
	return &bufferListener[T]{
		Forwarder: Forwarder[[]T]{Next: next},
		count:     d.count,
		items:     make([]T, 0, d.count),
	}
}

type bufferListener[T any] struct {
	Forwarder[[]T]
	count int
	items []T
}

func (l *bufferListener[T]) React(value T) {
	if l.IsReleased() {
		return
	}
	l.items = append(l.items, value)
	if len(l.items) == l.count {
		chunk := l.items
		l.items = make([]T, 0, l.count)
		l.Emit(chunk)
	}
}

func (l *bufferListener[T]) OnDispose(source DisposalSource) {
	if l.IsReleased() {
		return
	}
	if len(l.items) > 0 {
		chunk := l.items
		l.items = nil
		l.Emit(chunk)
	}
	l.items = nil
	l.Release(source)
}

// ============================================================================
// GroupBy
// ============================================================================

// Grouping GroupBy发出的分组记录
type Grouping[K comparable, T any] struct {
	// Key 分组键
	Key K
	// Value 本次到达的值
	Value T
	// Values 该键到目前为止的全部值（包含Value）
	Values []T
}

type groupBy[T any, K comparable] struct {
	keySelector func(T) K
}

// GroupBy 按键持续分组，每个值连同其分组的全部历史一起发出。
// 分组在订阅期间不会被淘汰，内存随不同键的数量和值的数量增长。
func GroupBy[T any, K comparable](keySelector func(T) K) Decorator[T, Grouping[K, T]] {
	return &groupBy[T, K]{keySelector: keySelector}
}

func (d *groupBy[T, K]) Decorate(next Listener[Grouping[K, T]], _ Subscriber) Listener[T] {
	return &groupByListener[T, K]{
		Forwarder:   Forwarder[Grouping[K, T]]{Next: next},
		keySelector: d.keySelector,
		groups:      make(map[K]*GrowingBuffer[T]),
	}
}

type groupByListener[T any, K comparable] struct {
	Forwarder[Grouping[K, T]]
	keySelector func(T) K
	groups      map[K]*GrowingBuffer[T]
}

func (l *groupByListener[T, K]) React(value T) {
	if l.IsReleased() {
		return
	}
	key := l.keySelector(value)
	group, ok := l.groups[key]
	if !ok {
		group = NewGrowingBuffer[T](4)
		l.groups[key] = group
	}
	group.Add(value)
	l.Emit(Grouping[K, T]{Key: key, Value: value, Values: group.AsMemory()})
}

func (l *groupByListener[T, K]) OnDispose(source DisposalSource) {
	for _, group := range l.groups {
		group.RemoveAll()
	}
	l.groups = nil
	l.Release(source)
}
