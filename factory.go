// Factory functions for rxstream
// 冷事件源工厂函数
package rxstream

import (
	"context"
	"sync/atomic"
)

// ============================================================================
// 基础工厂函数
// ============================================================================

// sliceStream 每次Listen都在调用方goroutine内同步推送全部值后结束
type sliceStream[T any] struct {
	values []T
}

// Just 从给定的值创建冷事件流
func Just[T any](values ...T) EventStream[T] {
	return &sliceStream[T]{values: values}
}

// FromSlice 从切片创建冷事件流
func FromSlice[T any](values []T) EventStream[T] {
	return &sliceStream[T]{values: values}
}

// Range 创建推送[start, start+count)整数的冷事件流
func Range(start, count int) EventStream[int] {
	values := make([]int, 0, max(count, 0))
	for i := 0; i < count; i++ {
		values = append(values, start+i)
	}
	return &sliceStream[int]{values: values}
}

// Empty 创建立即结束的事件流
func Empty[T any]() EventStream[T] {
	return &sliceStream[T]{}
}

func (s *sliceStream[T]) Listen(listener Listener[T]) Subscriber {
	for _, value := range s.values {
		listener.React(value)
	}
	listener.OnDispose(FromEventSource)
	return disposedSubscriber{}
}

func (s *sliceStream[T]) IsDisposed() bool {
	return false
}

// neverStream 永不推送也不结束，只能由订阅者释放
type neverStream[T any] struct{}

// Never 创建永不推送的事件流
func Never[T any]() EventStream[T] {
	return neverStream[T]{}
}

func (neverStream[T]) Listen(listener Listener[T]) Subscriber {
	return NewDisposable(func() {
		listener.OnDispose(FromSubscriber)
	})
}

func (neverStream[T]) IsDisposed() bool {
	return false
}

// ============================================================================
// 从通道创建
// ============================================================================

// channelStream 在独立goroutine中读取通道
type channelStream[T any] struct {
	ch <-chan T
}

// FromChannel 从通道创建事件流；通道关闭时结束。
// 同一通道被多次Listen时，各订阅竞争读取。
func FromChannel[T any](ch <-chan T) EventStream[T] {
	return &channelStream[T]{ch: ch}
}

func (s *channelStream[T]) Listen(listener Listener[T]) Subscriber {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &channelSubscription{cancel: cancel}
	go readChannel(ctx, s.ch, listener)
	return sub
}

func (s *channelStream[T]) IsDisposed() bool {
	return false
}

// readChannel 所有Listener调用都发生在读取goroutine上，释放请求也在这里转成OnDispose
func readChannel[T any](ctx context.Context, ch <-chan T, listener Listener[T]) {
	for {
		select {
		case <-ctx.Done():
			listener.OnDispose(FromSubscriber)
			return
		case value, ok := <-ch:
			if ctx.Err() != nil {
				listener.OnDispose(FromSubscriber)
				return
			}
			if !ok {
				listener.OnDispose(FromEventSource)
				return
			}
			listener.React(value)
		}
	}
}

// channelSubscription 释放是异步的：OnDispose随后在读取goroutine上投递
type channelSubscription struct {
	disposed atomic.Bool
	cancel   context.CancelFunc
}

// Dispose 请求停止读取
func (s *channelSubscription) Dispose() {
	if s.disposed.CompareAndSwap(false, true) {
		s.cancel()
	}
}

// IsDisposed 检查是否已请求释放
func (s *channelSubscription) IsDisposed() bool {
	return s.disposed.Load()
}
