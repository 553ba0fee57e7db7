// Blocking helpers for rxstream
// 阻塞辅助函数：在调用方goroutine上等待事件流结束
package rxstream

import "context"

// ForEach 订阅stream，对每个值调用action，阻塞到stream结束或ctx结束。
// ctx结束时释放订阅，等释放通知到达后返回ctx.Err()，返回后action不会再被调用。
// action在事件流推送的goroutine上执行。
func ForEach[T any](ctx context.Context, stream EventStream[T], action func(T)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	sub := stream.Listen(NewListener(action, func(DisposalSource) { close(done) }))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		sub.Dispose()
		<-done
		return ctx.Err()
	}
}

// Collect 收集stream的全部值，ctx结束时返回已收集的部分和ctx.Err()
func Collect[T any](ctx context.Context, stream EventStream[T]) ([]T, error) {
	var values []T
	err := ForEach(ctx, stream, func(value T) {
		values = append(values, value)
	})
	return values, err
}
