package stream

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain[T any](ch <-chan T) []T {
	var out []T
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, v)
		default:
			return out
		}
	}
}

func TestBroadcasterFanOut(t *testing.T) {
	b := NewBroadcaster[int]()
	a, cancelA := b.Subscribe(8)
	defer cancelA()
	c, cancelC := b.Subscribe(8)
	defer cancelC()

	b.Publish(1)
	b.Publish(2)

	assert.Equal(t, []int{1, 2}, drain(a))
	assert.Equal(t, []int{1, 2}, drain(c))
}

func TestBroadcasterNoReplay(t *testing.T) {
	b := NewBroadcaster[int]()
	b.Publish(1)

	ch, cancel := b.Subscribe(4)
	defer cancel()
	b.Publish(2)

	assert.Equal(t, []int{2}, drain(ch))
}

func TestBroadcasterDropsOldestForSlowSubscriber(t *testing.T) {
	var drops atomic.Int64
	b := NewBroadcaster[int]()
	b.OnDrop = func() { drops.Add(1) }

	slow, cancelSlow := b.Subscribe(2)
	defer cancelSlow()
	fast, cancelFast := b.Subscribe(16)
	defer cancelFast()

	for i := 1; i <= 5; i++ {
		b.Publish(i)
	}

	assert.Equal(t, []int{4, 5}, drain(slow))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, drain(fast))
	assert.EqualValues(t, 3, drops.Load())
}

func TestBroadcasterUnsubscribe(t *testing.T) {
	b := NewBroadcaster[int]()
	ch, cancel := b.Subscribe(4)
	require.Equal(t, 1, b.Len())

	cancel()
	cancel()
	assert.Equal(t, 0, b.Len())

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after cancel")

	// publishing after unsubscribe must not panic
	b.Publish(1)
}

func TestBroadcasterClose(t *testing.T) {
	b := NewBroadcaster[string]()
	ch, cancel := b.Subscribe(1)
	b.Close()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	late, _ := b.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok)
}
