package rxstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// recorder 记录收到的全部调用，不做任何过滤，便于发现违反约定的转发
type recorder[T any] struct {
	values    []T
	disposals []DisposalSource
}

func (r *recorder[T]) React(value T) {
	r.values = append(r.values, value)
}

func (r *recorder[T]) OnDispose(source DisposalSource) {
	r.disposals = append(r.disposals, source)
}

func (r *recorder[T]) disposed() bool {
	return len(r.disposals) > 0
}

var primes = []int{1, 2, 3, 5, 7, 11, 13, 17, 19, 23}

func publishAll[T any](p *Publisher[T], values ...T) {
	for _, value := range values {
		p.Publish(value)
	}
}

// assertDisposalContract 释放后不再转发React，多次OnDispose只转发一次
func assertDisposalContract[TIn, TOut any](t *testing.T, d Decorator[TIn, TOut], sample TIn) {
	t.Helper()
	rec := &recorder[TOut]{}
	l := d.Decorate(rec, NewLazyDisposable())

	l.OnDispose(FromEventSource)
	emitted := len(rec.values)
	l.React(sample)
	l.OnDispose(FromSubscriber)
	l.OnDispose(FromEventSource)

	assert.Equal(t, []DisposalSource{FromEventSource}, rec.disposals)
	assert.Len(t, rec.values, emitted)
}
