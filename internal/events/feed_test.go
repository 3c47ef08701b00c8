package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedPublishSubscribe(t *testing.T) {
	f := NewFeed[string](false)

	var mu sync.Mutex
	var got []string
	unsubscribe := f.Subscribe(func(v string) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})
	require.Equal(t, 1, f.Len())

	f.Publish("a")
	f.Publish("b")
	unsubscribe()
	f.Publish("c")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 0, f.Len())
}

func TestFeedReplaysLastValue(t *testing.T) {
	f := NewFeed[int](true)

	var first []int
	f.Subscribe(func(v int) { first = append(first, v) })
	assert.Empty(t, first, "nothing published yet")

	f.Publish(1)
	f.Publish(2)

	var late []int
	f.Subscribe(func(v int) { late = append(late, v) })
	assert.Equal(t, []int{2}, late)
	assert.Equal(t, []int{1, 2}, first)
}

func TestFeedWithoutReplay(t *testing.T) {
	f := NewFeed[int](false)
	f.Publish(1)

	called := false
	f.Subscribe(func(int) { called = true })
	assert.False(t, called)
}

func TestFeedSubscriberMayUnsubscribeDuringPublish(t *testing.T) {
	f := NewFeed[int](false)
	var unsubscribe func()
	count := 0
	unsubscribe = f.Subscribe(func(int) {
		count++
		unsubscribe()
	})
	f.Publish(1)
	f.Publish(2)
	assert.Equal(t, 1, count)
}

func TestFeedNilSubscriberPanics(t *testing.T) {
	f := NewFeed[int](false)
	assert.Panics(t, func() { f.Subscribe(nil) })
}

func TestFeedConcurrentPublish(t *testing.T) {
	f := NewFeed[int](false)
	var mu sync.Mutex
	total := 0
	f.Subscribe(func(v int) {
		mu.Lock()
		total += v
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Publish(1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, total)
}
