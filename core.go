// Package rxstream provides a push-based, composable event-stream operator library
// 基于装饰器组合的推送式事件流库：生产者推送值，消费者订阅一次并以唯一一次的释放通知结束
package rxstream

import (
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
)

// ============================================================================
// 核心类型定义
// ============================================================================

// DisposalSource 释放来源，标记一次释放是由上游还是由订阅者发起
type DisposalSource int

const (
	// FromEventSource 上游事件源自身结束（完成、失败或被释放）
	FromEventSource DisposalSource = iota
	// FromSubscriber 消费方通过Subscriber句柄请求提前终止
	FromSubscriber
)

// String 实现fmt.Stringer
func (s DisposalSource) String() string {
	switch s {
	case FromEventSource:
		return "event_source"
	case FromSubscriber:
		return "subscriber"
	default:
		return "unknown"
	}
}

// ErrInvalidCount 非法的计数参数（作为panic值使用）
var ErrInvalidCount = errors.New("rxstream: count must be positive")

// ============================================================================
// 生命周期管理
// ============================================================================

// Disposable 可释放资源的接口
type Disposable interface {
	// Dispose 释放资源
	Dispose()
	// IsDisposed 检查是否已释放
	IsDisposed() bool
}

// Subscriber 一次订阅的句柄，由Listen的调用方持有。
// 释放订阅时，生产者必须向该订阅的Listener投递OnDispose(FromSubscriber)。
type Subscriber interface {
	Disposable
}

// Replaceable 可以改为绑定另一个订阅的Subscriber，ContinueWith借此让
// 消费方的句柄继续控制接续流
type Replaceable interface {
	Subscriber
	Replace(inner Subscriber)
}

// Listener 每个订阅独立的消费者
type Listener[T any] interface {
	// React 接收一个值，可调用零次或多次
	React(value T)
	// OnDispose 终止通知，每个订阅恰好一次
	OnDispose(source DisposalSource)
}

// EventStream 可多次独立订阅的事件流
type EventStream[T any] interface {
	// Listen 订阅，返回订阅句柄
	Listen(listener Listener[T]) Subscriber
	// IsDisposed 事件流是否已结束
	IsDisposed() bool
}

// Decorator 操作符工厂：把下游Listener包装成上游Listener。
// 构造Decorator不得有副作用，所有状态都属于Decorate返回的Listener。
type Decorator[TIn, TOut any] interface {
	Decorate(next Listener[TOut], subscriber Subscriber) Listener[TIn]
}

// DecoratorFunc 函数形式的Decorator
type DecoratorFunc[TIn, TOut any] func(next Listener[TOut], subscriber Subscriber) Listener[TIn]

// Decorate 实现Decorator接口
func (f DecoratorFunc[TIn, TOut]) Decorate(next Listener[TOut], subscriber Subscriber) Listener[TIn] {
	return f(next, subscriber)
}

// ============================================================================
// 装饰流
// ============================================================================

// decoratedStream 被操作符包装的事件流
type decoratedStream[TIn, TOut any] struct {
	source    EventStream[TIn]
	decorator Decorator[TIn, TOut]
}

// Decorate 用操作符包装事件流。在结果流被Listen之前不会订阅source。
func Decorate[TIn, TOut any](source EventStream[TIn], decorator Decorator[TIn, TOut]) EventStream[TOut] {
	return &decoratedStream[TIn, TOut]{source: source, decorator: decorator}
}

// Listen 为本次订阅构造操作符Listener并订阅上游。
// 上游可能在Listen返回之前同步推送甚至结束，所以操作符拿到的是一个延迟绑定的句柄。
// 操作符在上游Listen返回前释放自己的订阅时，句柄立即向操作符Listener投递
// OnDispose(FromSubscriber)，上游之后同步推送的值和释放通知都被丢弃；
// 在Decorate期间就已释放时不再订阅上游。
func (s *decoratedStream[TIn, TOut]) Listen(listener Listener[TOut]) Subscriber {
	handle := NewLazyDisposable()
	upstream := &subscriptionGuard[TIn]{next: s.decorator.Decorate(listener, handle)}
	handle.OnPendingDispose(func() {
		upstream.OnDispose(FromSubscriber)
	})
	if handle.IsDisposed() {
		return handle
	}
	handle.Assign(s.source.Listen(upstream))
	return handle
}

// IsDisposed 与上游一致
func (s *decoratedStream[TIn, TOut]) IsDisposed() bool {
	return s.source.IsDisposed()
}

// subscriptionGuard 保证操作符Listener每个订阅只收到一次OnDispose，之后不再收到React
type subscriptionGuard[T any] struct {
	next     Listener[T]
	disposed atomic.Bool
}

func (g *subscriptionGuard[T]) React(value T) {
	if !g.disposed.Load() {
		g.next.React(value)
	}
}

func (g *subscriptionGuard[T]) OnDispose(source DisposalSource) {
	if g.disposed.CompareAndSwap(false, true) {
		g.next.OnDispose(source)
	}
}

// Pipe 依次应用多个同类型操作符
func Pipe[T any](source EventStream[T], decorators ...Decorator[T, T]) EventStream[T] {
	stream := source
	for _, d := range decorators {
		stream = Decorate(stream, d)
	}
	return stream
}

// Compose 把两个操作符合并为一个，first在上游
func Compose[A, B, C any](first Decorator[A, B], second Decorator[B, C]) Decorator[A, C] {
	return DecoratorFunc[A, C](func(next Listener[C], subscriber Subscriber) Listener[A] {
		return first.Decorate(second.Decorate(next, subscriber), subscriber)
	})
}

// ============================================================================
// 转发基座
// ============================================================================

// Forwarder 所有操作符Listener的转发基座。
// Release先断开Next再通知下游，因此下游最多收到一次OnDispose，且之后不会再收到React。
type Forwarder[T any] struct {
	Next Listener[T]
}

// Emit 在未释放时向下游转发一个值
func (f *Forwarder[T]) Emit(value T) {
	if f.Next != nil {
		f.Next.React(value)
	}
}

// Release 断开下游并转发释放通知，重复调用返回false
func (f *Forwarder[T]) Release(source DisposalSource) bool {
	next := f.Next
	if next == nil {
		return false
	}
	f.Next = nil
	next.OnDispose(source)
	return true
}

// IsReleased 是否已经向下游转发过释放
func (f *Forwarder[T]) IsReleased() bool {
	return f.Next == nil
}

// React 默认原样转发
func (f *Forwarder[T]) React(value T) {
	f.Emit(value)
}

// OnDispose 默认原样转发
func (f *Forwarder[T]) OnDispose(source DisposalSource) {
	f.Release(source)
}

// ============================================================================
// 回调适配
// ============================================================================

// funcListener 回调形式的Listener
type funcListener[T any] struct {
	onReact   func(T)
	onDispose func(DisposalSource)
	disposed  bool
}

// NewListener 用回调创建Listener，任一回调可为nil
func NewListener[T any](onReact func(T), onDispose func(DisposalSource)) Listener[T] {
	return &funcListener[T]{onReact: onReact, onDispose: onDispose}
}

func (l *funcListener[T]) React(value T) {
	if !l.disposed && l.onReact != nil {
		l.onReact(value)
	}
}

func (l *funcListener[T]) OnDispose(source DisposalSource) {
	if l.disposed {
		return
	}
	l.disposed = true
	onDispose := l.onDispose
	l.onReact, l.onDispose = nil, nil
	if onDispose != nil {
		onDispose(source)
	}
}

// ListenFunc 使用回调订阅
func ListenFunc[T any](stream EventStream[T], onReact func(T), onDispose func(DisposalSource)) Subscriber {
	return stream.Listen(NewListener(onReact, onDispose))
}

// ============================================================================
// 配置选项
// ============================================================================

// Option 配置选项接口
type Option interface {
	Apply(config *Config)
}

// OptionFunc 函数形式的Option
type OptionFunc func(config *Config)

// Apply 实现Option接口
func (f OptionFunc) Apply(config *Config) {
	f(config)
}

// Config 生产者配置
type Config struct {
	// Name 用于日志和指标标签
	Name string
	// Logger 为nil时使用包级logger
	Logger *zap.Logger
	// History ReplayPublisher保留的历史条数，<=0表示不限
	History int
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Name: "stream",
	}
}

// WithName 设置名称
func WithName(name string) Option {
	return OptionFunc(func(config *Config) {
		config.Name = name
	})
}

// WithLogger 设置日志器
func WithLogger(l *zap.Logger) Option {
	return OptionFunc(func(config *Config) {
		config.Logger = l
	})
}

// WithHistory 设置重放历史容量
func WithHistory(capacity int) Option {
	return OptionFunc(func(config *Config) {
		config.History = capacity
	})
}

func newConfig(options []Option) *Config {
	config := DefaultConfig()
	for _, opt := range options {
		opt.Apply(config)
	}
	if config.Logger == nil {
		config.Logger = Logger()
	}
	config.Logger = config.Logger.With(zap.String("stream", config.Name))
	return config
}
