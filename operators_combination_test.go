package rxstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeAll_Bounded(t *testing.T) {
	outer := NewPublisher[EventStream[int]]()
	a, b, c := NewPublisher[int](), NewPublisher[int](), NewPublisher[int]()
	rec := &recorder[int]{}
	Decorate(outer, MergeAll[int](2)).Listen(rec)

	outer.Publish(a)
	outer.Publish(b)
	outer.Publish(c)
	assert.Equal(t, 0, c.ListenerCount())

	a.Publish(1)
	b.Publish(2)
	c.Publish(3)
	assert.Equal(t, []int{1, 2}, rec.values)

	a.Dispose()
	require.Equal(t, 1, c.ListenerCount())
	c.Publish(4)
	b.Publish(5)
	assert.Equal(t, []int{1, 2, 4, 5}, rec.values)

	outer.Dispose()
	assert.Equal(t, 0, b.ListenerCount())
	assert.Equal(t, 0, c.ListenerCount())
	assert.Equal(t, []DisposalSource{FromEventSource}, rec.disposals)
}

func TestMergeAll_Unbounded(t *testing.T) {
	rec := &recorder[int]{}
	Decorate(Just(Just(1, 2), Just(3), Empty[int]()), MergeAll[int](0)).Listen(rec)
	assert.Equal(t, []int{1, 2, 3}, rec.values)
	assert.Equal(t, []DisposalSource{FromEventSource}, rec.disposals)
}

func TestConcatAll(t *testing.T) {
	outer := NewPublisher[EventStream[int]]()
	a, b := NewPublisher[int](), NewPublisher[int]()
	rec := &recorder[int]{}
	Decorate(outer, ConcatAll[int]()).Listen(rec)

	outer.Publish(a)
	outer.Publish(b)
	b.Publish(0)
	a.Publish(1)
	a.Dispose()
	b.Publish(2)
	assert.Equal(t, []int{1, 2}, rec.values)
}

func TestMergeAll_ConsumerDispose(t *testing.T) {
	outer := NewPublisher[EventStream[int]]()
	a := NewPublisher[int]()
	rec := &recorder[int]{}
	sub := Decorate(outer, MergeAll[int](0)).Listen(rec)

	outer.Publish(a)
	sub.Dispose()
	a.Publish(1)

	assert.Empty(t, rec.values)
	assert.Equal(t, 0, a.ListenerCount())
	assert.Equal(t, 0, outer.ListenerCount())
	assert.Equal(t, []DisposalSource{FromSubscriber}, rec.disposals)
}

func TestSwitchAll(t *testing.T) {
	outer := NewPublisher[EventStream[int]]()
	a, b := NewPublisher[int](), NewPublisher[int]()
	rec := &recorder[int]{}
	Decorate(outer, SwitchAll[int]()).Listen(rec)

	outer.Publish(a)
	a.Publish(1)
	outer.Publish(b)
	assert.Equal(t, 0, a.ListenerCount())
	assert.Equal(t, 1, b.ListenerCount())

	a.Publish(2)
	b.Publish(3)
	assert.Equal(t, []int{1, 3}, rec.values)

	outer.Dispose()
	assert.Equal(t, 0, b.ListenerCount())
	assert.Equal(t, []DisposalSource{FromEventSource}, rec.disposals)
}

func TestSwitchAll_InnerEndsOnItsOwn(t *testing.T) {
	outer := NewPublisher[EventStream[int]]()
	a, b := NewPublisher[int](), NewPublisher[int]()
	rec := &recorder[int]{}
	Decorate(outer, SwitchAll[int]()).Listen(rec)

	outer.Publish(a)
	a.Dispose()
	outer.Publish(b)
	b.Publish(1)
	assert.Equal(t, []int{1}, rec.values)
	assert.False(t, rec.disposed())
}

func TestExhaustAll(t *testing.T) {
	outer := NewPublisher[EventStream[int]]()
	a, b, c := NewPublisher[int](), NewPublisher[int](), NewPublisher[int]()
	rec := &recorder[int]{}
	Decorate(outer, ExhaustAll[int]()).Listen(rec)

	outer.Publish(a)
	outer.Publish(b)
	assert.Equal(t, 0, b.ListenerCount())

	b.Publish(1)
	a.Publish(2)
	a.Dispose()
	b.Publish(3)
	outer.Publish(c)
	c.Publish(4)
	assert.Equal(t, []int{2, 4}, rec.values)
}

func TestContinueWith(t *testing.T) {
	src := NewPublisher[int]()
	cont := NewPublisher[string]()
	var got int
	rec := &recorder[string]{}
	sub := Decorate(src, ContinueWith(func(v int) EventStream[string] {
		got = v
		return cont
	})).Listen(rec)

	publishAll(src, 1, 2)
	assert.Empty(t, rec.values)

	src.Dispose()
	assert.Equal(t, 2, got)
	require.Equal(t, 1, cont.ListenerCount())
	assert.False(t, rec.disposed())

	cont.Publish("x")
	assert.Equal(t, []string{"x"}, rec.values)

	// 消费方的句柄现在控制接续流
	sub.Dispose()
	assert.Equal(t, 0, cont.ListenerCount())
	assert.Equal(t, []DisposalSource{FromSubscriber}, rec.disposals)
}

func TestContinueWith_ColdSource(t *testing.T) {
	rec := &recorder[string]{}
	sub := Decorate(Just(1, 2, 3), ContinueWith(func(v int) EventStream[string] {
		return Just("a", "b")
	})).Listen(rec)

	assert.Equal(t, []string{"a", "b"}, rec.values)
	assert.Equal(t, []DisposalSource{FromEventSource}, rec.disposals)
	assert.True(t, sub.IsDisposed())
}

func TestContinueWith_NoValue(t *testing.T) {
	called := false
	rec := &recorder[string]{}
	Decorate(Empty[int](), ContinueWith(func(int) EventStream[string] {
		called = true
		return Never[string]()
	})).Listen(rec)

	assert.False(t, called)
	assert.Equal(t, []DisposalSource{FromEventSource}, rec.disposals)
}

func TestZip(t *testing.T) {
	src, tgt := NewPublisher[int](), NewPublisher[string]()
	rec := &recorder[string]{}
	sub := Decorate(src, Zip(tgt, func(n int, s string) string {
		return s + string(rune('0'+n))
	})).Listen(rec)

	publishAll(src, 1, 2)
	tgt.Publish("a")
	publishAll(tgt, "b", "c")
	src.Publish(3)
	assert.Equal(t, []string{"a1", "b2", "c3"}, rec.values)

	tgt.Dispose()
	assert.True(t, sub.IsDisposed())
	assert.Equal(t, []DisposalSource{FromSubscriber}, rec.disposals)
	assert.Equal(t, 0, src.ListenerCount())
}

func TestCombinationOperators_DisposalContract(t *testing.T) {
	inner := NewPublisher[int]()
	assertDisposalContract[EventStream[int], int](t, MergeAll[int](1), inner)
	assertDisposalContract[EventStream[int], int](t, SwitchAll[int](), inner)
	assertDisposalContract[EventStream[int], int](t, ExhaustAll[int](), inner)
	assertDisposalContract(t, ContinueWith(func(int) EventStream[int] { return inner }), 1)
	assertDisposalContract(t, Zip(NewPublisher[int](), func(a, b int) int { return a + b }), 1)
	assert.Equal(t, 0, inner.ListenerCount())
}
