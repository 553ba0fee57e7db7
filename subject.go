// Publisher implementations for rxstream
// 热事件源：Publisher与带历史重放的ReplayPublisher
package rxstream

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ============================================================================
// Publisher - 发布者
// ============================================================================

// Publisher 多播事件源，只向当前订阅者推送新值。
// Publish按订阅顺序同步扇出；某个Listener panic时后续订阅者不会收到该值，
// 扇出不具备跨订阅者的原子性。
type Publisher[T any] struct {
	mu       sync.Mutex
	subs     []*publisherSubscription[T]
	disposed atomic.Bool
	config   *Config
}

// NewPublisher 创建发布者
func NewPublisher[T any](options ...Option) *Publisher[T] {
	return &Publisher[T]{config: newConfig(options)}
}

// publisherSubscription Publisher上的一次订阅
type publisherSubscription[T any] struct {
	owner    *Publisher[T]
	listener Listener[T]
	disposed atomic.Bool
}

// Dispose 取消订阅并通知Listener
func (s *publisherSubscription[T]) Dispose() {
	if !s.disposed.CompareAndSwap(false, true) {
		return
	}
	s.owner.remove(s)
	listener := s.listener
	s.listener = nil
	listener.OnDispose(FromSubscriber)
}

// IsDisposed 检查是否已取消
func (s *publisherSubscription[T]) IsDisposed() bool {
	return s.disposed.Load()
}

// complete 由事件源结束触发
func (s *publisherSubscription[T]) complete() {
	if !s.disposed.CompareAndSwap(false, true) {
		return
	}
	listener := s.listener
	s.listener = nil
	listener.OnDispose(FromEventSource)
}

func (s *publisherSubscription[T]) react(value T) {
	if s.disposed.Load() {
		return
	}
	if listener := s.listener; listener != nil {
		listener.React(value)
	}
}

// Listen 订阅。已结束的Publisher立即投递OnDispose(FromEventSource)。
func (p *Publisher[T]) Listen(listener Listener[T]) Subscriber {
	sub := &publisherSubscription[T]{owner: p, listener: listener}

	p.mu.Lock()
	if p.disposed.Load() {
		p.mu.Unlock()
		p.config.Logger.Debug("listen on disposed publisher")
		sub.complete()
		return sub
	}
	p.subs = append(p.subs, sub)
	p.mu.Unlock()

	return sub
}

// Publish 向所有当前订阅者推送值
func (p *Publisher[T]) Publish(value T) {
	if p.disposed.Load() {
		return
	}
	for _, sub := range p.snapshot() {
		sub.react(value)
	}
}

// Dispose 结束事件源，每个订阅者收到一次OnDispose(FromEventSource)
func (p *Publisher[T]) Dispose() {
	p.mu.Lock()
	if p.disposed.Load() {
		p.mu.Unlock()
		return
	}
	p.disposed.Store(true)
	subs := p.subs
	p.subs = nil
	p.mu.Unlock()

	p.config.Logger.Debug("publisher disposed", zap.Int("listeners", len(subs)))
	for _, sub := range subs {
		sub.complete()
	}
}

// IsDisposed 检查是否已结束
func (p *Publisher[T]) IsDisposed() bool {
	return p.disposed.Load()
}

// ListenerCount 当前订阅者数量
func (p *Publisher[T]) ListenerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

func (p *Publisher[T]) snapshot() []*publisherSubscription[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	subs := make([]*publisherSubscription[T], len(p.subs))
	copy(subs, p.subs)
	return subs
}

func (p *Publisher[T]) remove(target *publisherSubscription[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, sub := range p.subs {
		if sub == target {
			p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
			return
		}
	}
}

// ============================================================================
// ReplayPublisher - 重放发布者
// ============================================================================

// ReplayPublisher 在Listen内同步重放历史值，再接收后续推送
type ReplayPublisher[T any] struct {
	*Publisher[T]
	historyMu sync.Mutex
	history   *Queue[T]
	capacity  int
}

// NewReplayPublisher 创建重放发布者，capacity<=0表示保留全部历史
func NewReplayPublisher[T any](capacity int, options ...Option) *ReplayPublisher[T] {
	options = append([]Option{WithHistory(capacity)}, options...)
	p := NewPublisher[T](options...)
	return &ReplayPublisher[T]{
		Publisher: p,
		history:   NewQueue[T](16),
		capacity:  p.config.History,
	}
}

// Publish 记录历史并推送
func (p *ReplayPublisher[T]) Publish(value T) {
	if p.IsDisposed() {
		return
	}
	p.historyMu.Lock()
	p.history.Push(value)
	if p.capacity > 0 && p.history.Len() > p.capacity {
		p.history.Pop()
	}
	p.historyMu.Unlock()

	p.Publisher.Publish(value)
}

// Listen 先同步重放历史，再注册订阅；已结束时重放后立即结束
func (p *ReplayPublisher[T]) Listen(listener Listener[T]) Subscriber {
	sub := &publisherSubscription[T]{owner: p.Publisher, listener: listener}
	for _, value := range p.History() {
		sub.react(value)
	}
	if sub.IsDisposed() {
		return sub
	}

	p.mu.Lock()
	if p.disposed.Load() {
		p.mu.Unlock()
		sub.complete()
		return sub
	}
	p.subs = append(p.subs, sub)
	p.mu.Unlock()

	return sub
}

// History 返回当前保留的历史副本
func (p *ReplayPublisher[T]) History() []T {
	p.historyMu.Lock()
	defer p.historyMu.Unlock()
	values := make([]T, 0, p.history.Len())
	for i := 0; i < p.history.Len(); i++ {
		value, _ := p.history.Pop()
		values = append(values, value)
		p.history.Push(value)
	}
	return values
}
