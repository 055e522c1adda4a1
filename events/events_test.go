package events

import (
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	Name string
}

type otherEvent struct {
	N int
}

func TestSubscribeEmit(t *testing.T) {
	got := make(chan testEvent, 1)
	sub := Subscribe(func(evt testEvent) { got <- evt })
	defer sub.Unsubscribe()

	var others atomic.Int32
	other := Subscribe(func(evt otherEvent) { others.Add(1) })
	defer other.Unsubscribe()

	Emit(testEvent{Name: "hello"})
	select {
	case evt := <-got:
		assert.Equal(t, "hello", evt.Name)
	case <-time.After(time.Second):
		require.FailNow(t, "event was not delivered")
	}
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, others.Load(), "subscribers of other event types must not be called")
}

func TestUnsubscribe(t *testing.T) {
	var calls atomic.Int32
	sub := Subscribe(func(evt testEvent) { calls.Add(1) })
	sub.Unsubscribe()
	sub.Unsubscribe()

	Emit(testEvent{Name: "ignored"})
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, calls.Load())

	subscriptionsMu.RLock()
	defer subscriptionsMu.RUnlock()
	assert.NotContains(t, subscriptions, reflect.TypeFor[testEvent]())
}
