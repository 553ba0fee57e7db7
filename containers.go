package rxstream

// ============================================================================
// Optional 可选值槽
// ============================================================================

// Optional 值或空，用于"最近一次的值"这类状态
type Optional[T any] struct {
	value T
	has   bool
}

// Some 创建含值的Optional
func Some[T any](value T) Optional[T] {
	return Optional[T]{value: value, has: true}
}

// HasValue 是否有值
func (o *Optional[T]) HasValue() bool {
	return o.has
}

// Set 设置值
func (o *Optional[T]) Set(value T) {
	o.value = value
	o.has = true
}

// Get 读取值
func (o *Optional[T]) Get() (T, bool) {
	return o.value, o.has
}

// Take 读取并清空
func (o *Optional[T]) Take() (T, bool) {
	value, has := o.value, o.has
	o.Clear()
	return value, has
}

// Clear 清空
func (o *Optional[T]) Clear() {
	var zero T
	o.value = zero
	o.has = false
}

// TryForwardTo 有值时先清空再把值推给listener
func (o *Optional[T]) TryForwardTo(listener Listener[T]) bool {
	value, has := o.Take()
	if !has {
		return false
	}
	listener.React(value)
	return true
}

// ============================================================================
// GrowingBuffer 可增长缓冲区
// ============================================================================

// GrowingBuffer 摊还O(1)追加、可复用容量的缓冲区
type GrowingBuffer[T any] struct {
	items []T
}

// NewGrowingBuffer 创建指定初始容量的缓冲区
func NewGrowingBuffer[T any](capacity int) *GrowingBuffer[T] {
	return &GrowingBuffer[T]{items: make([]T, 0, capacity)}
}

// Add 追加一个值
func (b *GrowingBuffer[T]) Add(value T) {
	b.items = append(b.items, value)
}

// AsMemory 返回当前内容的视图。Clear之后视图内容会被清零，需要保留时先复制。
func (b *GrowingBuffer[T]) AsMemory() []T {
	return b.items
}

// Len 当前长度
func (b *GrowingBuffer[T]) Len() int {
	return len(b.items)
}

// Clear 清空内容并保留容量
func (b *GrowingBuffer[T]) Clear() {
	clear(b.items)
	b.items = b.items[:0]
}

// RemoveAll 丢弃底层存储
func (b *GrowingBuffer[T]) RemoveAll() {
	b.items = nil
}

// ============================================================================
// Queue FIFO环形队列
// ============================================================================

// Queue 环形缓冲实现的FIFO队列
type Queue[T any] struct {
	items []T
	head  int
	size  int
}

// NewQueue 创建指定初始容量的队列
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{items: make([]T, capacity)}
}

// Len 队列长度
func (q *Queue[T]) Len() int {
	return q.size
}

// Push 入队
func (q *Queue[T]) Push(value T) {
	if q.size == len(q.items) {
		q.grow()
	}
	q.items[(q.head+q.size)%len(q.items)] = value
	q.size++
}

// Pop 出队
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	if q.size == 0 {
		return zero, false
	}
	value := q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.size--
	return value, true
}

// Peek 查看队首
func (q *Queue[T]) Peek() (T, bool) {
	if q.size == 0 {
		var zero T
		return zero, false
	}
	return q.items[q.head], true
}

// Clear 清空队列
func (q *Queue[T]) Clear() {
	clear(q.items)
	q.head = 0
	q.size = 0
}

func (q *Queue[T]) grow() {
	capacity := len(q.items) * 2
	if capacity == 0 {
		capacity = 4
	}
	items := make([]T, capacity)
	for i := 0; i < q.size; i++ {
		items[i] = q.items[(q.head+i)%len(q.items)]
	}
	q.items = items
	q.head = 0
}

// ============================================================================
// SlotMap 稳定键的槽位表
// ============================================================================

// SlotKey SlotMap的键，槽位复用后旧键失效
type SlotKey struct {
	index      int
	generation uint32
}

type slot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// SlotMap 插入返回稳定键，按键O(1)删除，可遍历存活条目
type SlotMap[T any] struct {
	slots []slot[T]
	free  []int
	size  int
}

// Insert 插入值并返回键
func (m *SlotMap[T]) Insert(value T) SlotKey {
	var index int
	if n := len(m.free); n > 0 {
		index = m.free[n-1]
		m.free = m.free[:n-1]
	} else {
		m.slots = append(m.slots, slot[T]{})
		index = len(m.slots) - 1
	}
	s := &m.slots[index]
	s.generation++
	s.value = value
	s.occupied = true
	m.size++
	return SlotKey{index: index, generation: s.generation}
}

// Get 按键读取
func (m *SlotMap[T]) Get(key SlotKey) (T, bool) {
	if s := m.lookup(key); s != nil {
		return s.value, true
	}
	var zero T
	return zero, false
}

// Remove 按键删除，键失效或已删除时返回false
func (m *SlotMap[T]) Remove(key SlotKey) (T, bool) {
	var zero T
	s := m.lookup(key)
	if s == nil {
		return zero, false
	}
	value := s.value
	s.value = zero
	s.occupied = false
	m.free = append(m.free, key.index)
	m.size--
	return value, true
}

// Len 存活条目数
func (m *SlotMap[T]) Len() int {
	return m.size
}

// Range 遍历存活条目，fn返回false时停止
func (m *SlotMap[T]) Range(fn func(key SlotKey, value T) bool) {
	for i := range m.slots {
		s := &m.slots[i]
		if !s.occupied {
			continue
		}
		if !fn(SlotKey{index: i, generation: s.generation}, s.value) {
			return
		}
	}
}

// Clear 删除全部条目，之前的键全部失效
func (m *SlotMap[T]) Clear() {
	m.free = m.free[:0]
	for i := range m.slots {
		s := &m.slots[i]
		if s.occupied {
			var zero T
			s.value = zero
			s.occupied = false
		}
		m.free = append(m.free, i)
	}
	m.size = 0
}

func (m *SlotMap[T]) lookup(key SlotKey) *slot[T] {
	if key.index < 0 || key.index >= len(m.slots) {
		return nil
	}
	s := &m.slots[key.index]
	if !s.occupied || s.generation != key.generation {
		return nil
	}
	return s
}
