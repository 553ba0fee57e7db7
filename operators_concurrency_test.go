package rxstream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestConcurrent_ReactRacingDispose(t *testing.T) {
	for round := 0; round < 50; round++ {
		var events []string
		sink := NewListener(
			func(int) { events = append(events, "react") },
			func(DisposalSource) { events = append(events, "dispose") },
		)
		l := Concurrent[int](nil).Decorate(sink, NewLazyDisposable())

		var g errgroup.Group
		for i := 0; i < 8; i++ {
			g.Go(func() error {
				for j := 0; j < 100; j++ {
					l.React(j)
				}
				return nil
			})
		}
		g.Go(func() error {
			l.OnDispose(FromSubscriber)
			return nil
		})
		g.Go(func() error {
			l.OnDispose(FromEventSource)
			return nil
		})
		require.NoError(t, g.Wait())

		require.NotEmpty(t, events)
		assert.Equal(t, "dispose", events[len(events)-1])
		disposals := 0
		for _, e := range events {
			if e == "dispose" {
				disposals++
			}
		}
		assert.Equal(t, 1, disposals)
	}
}

func TestConcurrent_DownstreamSelfDispose(t *testing.T) {
	pub := NewPublisher[int]()
	rec := &recorder[int]{}
	sub := Decorate(Decorate(pub, Concurrent[int](nil)), Take[int](1)).Listen(rec)

	publishAll(pub, 1, 2)
	assert.Equal(t, []int{1}, rec.values)
	assert.True(t, sub.IsDisposed())
	assert.Equal(t, []DisposalSource{FromSubscriber}, rec.disposals)
	assert.Equal(t, 0, pub.ListenerCount())
}

func TestConcurrent_QueuedDisposeSurvivesPanic(t *testing.T) {
	entered, release := make(chan struct{}), make(chan struct{})
	var disposals []DisposalSource
	sink := NewListener(
		func(int) {
			close(entered)
			<-release
			panic(errors.New("sink failed"))
		},
		func(source DisposalSource) { disposals = append(disposals, source) },
	)
	l := Concurrent[int](nil).Decorate(sink, NewLazyDisposable())

	recovered := make(chan any)
	go func() {
		defer func() { recovered <- recover() }()
		l.React(1)
	}()

	<-entered
	// 域被占用，OnDispose排队后立即返回
	l.OnDispose(FromEventSource)
	close(release)

	err, ok := (<-recovered).(error)
	require.True(t, ok)
	assert.EqualError(t, err, "sink failed")
	assert.Equal(t, []DisposalSource{FromEventSource}, disposals)

	// 处理权已经交还，之后的调用不会挂起
	l.OnDispose(FromSubscriber)
	assert.Equal(t, []DisposalSource{FromEventSource}, disposals)
}

func TestLock_SharedAcrossSubscriptions(t *testing.T) {
	var mu sync.Mutex
	left, right := NewPublisher[int](), NewPublisher[int]()
	total := 0
	sink := func(v int) { total += v }
	ListenFunc(Decorate(left, Lock[int](&mu)), sink, nil)
	ListenFunc(Decorate(right, Lock[int](&mu)), sink, nil)

	var g errgroup.Group
	for _, pub := range []*Publisher[int]{left, right} {
		g.Go(func() error {
			for i := 0; i < 1000; i++ {
				pub.Publish(1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2000, total)
}

func TestConcurrentAll_GuardsInnerStreams(t *testing.T) {
	outer := NewPublisher[EventStream[int]]()
	a, b := NewPublisher[int](), NewPublisher[int]()
	var mu sync.Mutex
	total := 0
	sub := ListenFunc(
		Decorate(Decorate(outer, LockAll[int](&mu)), MergeAll[int](0)),
		func(v int) { total += v },
		nil,
	)

	outer.Publish(a)
	outer.Publish(b)

	var g errgroup.Group
	for _, pub := range []*Publisher[int]{a, b} {
		g.Go(func() error {
			for i := 0; i < 500; i++ {
				pub.Publish(2)
			}
			return nil
		})
	}
	g.Go(func() error {
		outer.Publish(Just(1))
		return nil
	})
	require.NoError(t, g.Wait())

	mu.Lock()
	assert.Equal(t, 2001, total)
	mu.Unlock()

	sub.Dispose()
	assert.Equal(t, 0, a.ListenerCount())
	assert.Equal(t, 0, b.ListenerCount())
}

func TestObserveOn_EventLoop(t *testing.T) {
	loop := NewEventLoopScheduler()
	pub := NewPublisher[int]()
	var got []int
	done := make(chan DisposalSource, 1)
	ListenFunc(Decorate(pub, ObserveOn[int](loop)),
		func(v int) { got = append(got, v) },
		func(s DisposalSource) { done <- s },
	)

	for i := 0; i < 100; i++ {
		pub.Publish(i)
	}
	pub.Dispose()

	select {
	case source := <-done:
		assert.Equal(t, FromEventSource, source)
	case <-time.After(time.Second):
		t.Fatal("dispose was not delivered on the event loop")
	}
	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}

	loop.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, loop.Wait(ctx))

	task := loop.Schedule(func() { t.Error("task ran after stop") })
	assert.True(t, task.IsDisposed())
}

func TestObserveOn_Immediate(t *testing.T) {
	rec := &recorder[int]{}
	Decorate(Just(1, 2), ObserveOn[int](NewImmediateScheduler())).Listen(rec)
	assert.Equal(t, []int{1, 2}, rec.values)
	assert.Equal(t, []DisposalSource{FromEventSource}, rec.disposals)
}

func TestTrampolineScheduler_RunsNestedTasksAfterCurrent(t *testing.T) {
	s := NewTrampolineScheduler()
	var order []string
	s.Schedule(func() {
		order = append(order, "outer-start")
		s.Schedule(func() { order = append(order, "nested") })
		order = append(order, "outer-end")
	})
	assert.Equal(t, []string{"outer-start", "outer-end", "nested"}, order)
}

func TestScheduledTask_Cancel(t *testing.T) {
	var run func()
	s := SchedulerFunc(func(action func()) { run = action })
	ran := false
	task := s.Schedule(func() { ran = true })
	task.Dispose()
	run()
	assert.False(t, ran)
}

func TestGoroutineScheduler(t *testing.T) {
	done := make(chan struct{})
	NewGoroutineScheduler().Schedule(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
}

func TestConcurrencyOperators_DisposalContract(t *testing.T) {
	assertDisposalContract(t, Concurrent[int](nil), 1)
	assertDisposalContract(t, Lock[int](nil), 1)
	assertDisposalContract(t, ObserveOn[int](NewImmediateScheduler()), 1)
	assertDisposalContract(t, ObserveOn[int](NewTrampolineScheduler()), 1)
}
