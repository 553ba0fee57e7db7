// Side-effect operators for rxstream
// 副作用操作符：Do、DoOnDispose与日志追踪
package rxstream

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ============================================================================
// Do / DoOnDispose
// ============================================================================

type do[T any] struct {
	action func(T)
}

// Do 转发前对每个值执行action
func Do[T any](action func(T)) Decorator[T, T] {
	return &do[T]{action: action}
}

func (d *do[T]) Decorate(next Listener[T], _ Subscriber) Listener[T] {
	return &doListener[T]{Forwarder: Forwarder[T]{Next: next}, action: d.action}
}

type doListener[T any] struct {
	Forwarder[T]
	action func(T)
}

func (l *doListener[T]) React(value T) {
	if l.IsReleased() {
		return
	}
	l.action(value)
	l.Emit(value)
}

type doOnDispose[T any] struct {
	action func(DisposalSource)
}

// DoOnDispose 转发释放前执行action，每个订阅最多一次
func DoOnDispose[T any](action func(DisposalSource)) Decorator[T, T] {
	return &doOnDispose[T]{action: action}
}

func (d *doOnDispose[T]) Decorate(next Listener[T], _ Subscriber) Listener[T] {
	return &doOnDisposeListener[T]{Forwarder: Forwarder[T]{Next: next}, action: d.action}
}

type doOnDisposeListener[T any] struct {
	Forwarder[T]
	action func(DisposalSource)
}

func (l *doOnDisposeListener[T]) OnDispose(source DisposalSource) {
	if l.IsReleased() {
		return
	}
	action := l.action
	l.action = nil
	action(source)
	l.Release(source)
}

// ============================================================================
// Trace
// ============================================================================

type trace[T any] struct {
	logger *zap.Logger
	name   string
}

// Trace 以Debug级别记录每个订阅的建立、推送与释放，每个订阅带一个uuid
func Trace[T any](logger *zap.Logger, name string) Decorator[T, T] {
	if logger == nil {
		logger = Logger()
	}
	return &trace[T]{logger: logger, name: name}
}

func (d *trace[T]) Decorate(next Listener[T], _ Subscriber) Listener[T] {
	logger := d.logger.With(
		zap.String("stream", d.name),
		zap.String("subscription", uuid.NewString()),
	)
	logger.Debug("listen")
	return &traceListener[T]{Forwarder: Forwarder[T]{Next: next}, logger: logger}
}

type traceListener[T any] struct {
	Forwarder[T]
	logger *zap.Logger
	reacts int
}

func (l *traceListener[T]) React(value T) {
	if l.IsReleased() {
		return
	}
	l.reacts++
	l.logger.Debug("react", zap.Any("value", value))
	l.Emit(value)
}

func (l *traceListener[T]) OnDispose(source DisposalSource) {
	if l.IsReleased() {
		return
	}
	l.logger.Debug("dispose", zap.Stringer("source", source), zap.Int("reacts", l.reacts))
	l.Release(source)
}
