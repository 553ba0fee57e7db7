package rxstream

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rejectedError struct {
	value int
}

func (e *rejectedError) Error() string {
	return fmt.Sprintf("rejected %d", e.value)
}

func TestPanicPropagatesWithoutCatch(t *testing.T) {
	pub := NewPublisher[int]()
	Decorate(pub, Map(func(v int) int {
		if v < 0 {
			panic(&rejectedError{v})
		}
		return v
	})).Listen(&recorder[int]{})

	assert.Panics(t, func() { pub.Publish(-1) })
	assert.Equal(t, 1, pub.ListenerCount())
}

func TestCatch(t *testing.T) {
	pub := NewPublisher[int]()
	collector := &ErrorCollector{}
	var got []int
	sink := NewListener(func(v int) {
		if v%2 == 0 {
			panic(fmt.Errorf("handling: %w", &rejectedError{v}))
		}
		got = append(got, v)
	}, nil)
	Decorate(pub, Catch[int](func(err *rejectedError) { collector.Handle(err) })).Listen(sink)

	publishAll(pub, 1, 2, 3, 4)
	assert.Equal(t, []int{1, 3}, got)
	assert.Equal(t, 1, pub.ListenerCount())

	errs := collector.Errors()
	require.Len(t, errs, 2)
	assert.EqualError(t, errs[0], "rejected 2")
	assert.EqualError(t, collector.Err(), "rejected 2; rejected 4")
}

func TestCatch_RethrowsOtherPanics(t *testing.T) {
	pub := NewPublisher[int]()
	boom := errors.New("boom")
	sink := NewListener(func(v int) {
		if v == 1 {
			panic(boom)
		}
		panic("not an error")
	}, nil)
	Decorate(pub, Catch[int](func(*rejectedError) { t.Error("unexpected handler call") })).Listen(sink)

	assert.PanicsWithError(t, "boom", func() { pub.Publish(1) })
	assert.PanicsWithValue(t, "not an error", func() { pub.Publish(2) })
}

func TestCatch_GuardsOnDispose(t *testing.T) {
	pub := NewPublisher[int]()
	var caught []error
	sink := NewListener[int](nil, func(DisposalSource) { panic(&rejectedError{0}) })
	Decorate(pub, Catch[int](func(err error) { caught = append(caught, err) })).Listen(sink)

	assert.NotPanics(t, pub.Dispose)
	assert.Len(t, caught, 1)
}

func TestErrorCollector_Empty(t *testing.T) {
	var c ErrorCollector
	assert.NoError(t, c.Err())
	assert.Empty(t, c.Errors())
}

func TestErrorHandlingOperators_DisposalContract(t *testing.T) {
	assertDisposalContract(t, Catch[int](func(error) {}), 1)
}
