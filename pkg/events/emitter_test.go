package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitter_DeliversInRegistrationOrder(t *testing.T) {
	e := NewEmitter[int]()

	var order []string
	e.Subscribe(func(int) { order = append(order, "first") })
	e.Subscribe(func(int) { order = append(order, "second") })
	e.Subscribe(func(int) { order = append(order, "third") })

	e.Emit(1)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestEmitter_ObserversSeeValuesInEmitOrder(t *testing.T) {
	e := NewEmitter[int]()

	var seen []int
	e.Subscribe(func(v int) { seen = append(seen, v) })

	e.Emit(1)
	e.Emit(2)
	e.Emit(3)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestEmitter_Unsubscribe(t *testing.T) {
	e := NewEmitter[string]()

	var got []string
	unsub := e.Subscribe(func(v string) { got = append(got, v) })

	e.Emit("a")
	unsub()
	e.Emit("b")

	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, 0, e.Len())

	// Second call is a no-op.
	unsub()
}

func TestEmitter_SubscribeDuringEmitSeesOnlyLaterValues(t *testing.T) {
	e := NewEmitter[int]()

	var late []int
	e.Subscribe(func(v int) {
		if v == 1 {
			e.Subscribe(func(v int) { late = append(late, v) })
		}
	})

	e.Emit(1)
	e.Emit(2)

	assert.Equal(t, []int{2}, late)
	assert.Equal(t, 2, e.Len())
}

func TestEmitter_UnsubscribeSelfDuringEmit(t *testing.T) {
	e := NewEmitter[int]()

	var got []int
	var unsub func()
	unsub = e.Subscribe(func(v int) {
		got = append(got, v)
		unsub()
	})

	e.Emit(1)
	e.Emit(2)

	assert.Equal(t, []int{1}, got)
	assert.Equal(t, 0, e.Len())
}

func TestEmitter_UnsubscribeMiddlePreservesOthers(t *testing.T) {
	e := NewEmitter[int]()

	var a, b, c int
	e.Subscribe(func(v int) { a += v })
	unsubB := e.Subscribe(func(v int) { b += v })
	e.Subscribe(func(v int) { c += v })

	unsubB()
	e.Emit(5)

	assert.Equal(t, 5, a)
	assert.Equal(t, 0, b)
	assert.Equal(t, 5, c)
}
