// Error handling for rxstream
// 错误处理：用户回调的panic默认同步向外传播，只有Catch会拦截
package rxstream

import (
	"errors"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ============================================================================
// Catch
// ============================================================================

type catch[T any, E error] struct {
	handler func(E)
}

// Catch 拦截下游React/OnDispose中panic出的、可以errors.As为E的错误，交给handler处理，
// 订阅不会因此终止。其他panic原样重新抛出。
func Catch[T any, E error](handler func(E)) Decorator[T, T] {
	return &catch[T, E]{handler: handler}
}

func (d *catch[T, E]) Decorate(next Listener[T], _ Subscriber) Listener[T] {
	return &catchListener[T, E]{Forwarder: Forwarder[T]{Next: next}, handler: d.handler}
}

type catchListener[T any, E error] struct {
	Forwarder[T]
	handler func(E)
}

func (l *catchListener[T, E]) React(value T) {
	defer l.guard()
	l.Emit(value)
}

func (l *catchListener[T, E]) OnDispose(source DisposalSource) {
	defer l.guard()
	l.Release(source)
}

func (l *catchListener[T, E]) guard() {
	r := recover()
	if r == nil {
		return
	}
	err, ok := r.(error)
	if !ok {
		panic(r)
	}
	var target E
	if !errors.As(err, &target) {
		panic(r)
	}
	Logger().Debug("catch: recovered", zap.Error(err))
	l.handler(target)
}

// ============================================================================
// ErrorCollector
// ============================================================================

// ErrorCollector 收集Catch拦截到的错误，可并发使用
type ErrorCollector struct {
	mu  sync.Mutex
	err error
}

// Handle 记录一个错误，可直接作为Catch的handler
func (c *ErrorCollector) Handle(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = multierr.Append(c.err, err)
}

// Err 返回合并后的错误，没有错误时为nil
func (c *ErrorCollector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Errors 返回收集到的全部错误
func (c *ErrorCollector) Errors() []error {
	return multierr.Errors(c.Err())
}
