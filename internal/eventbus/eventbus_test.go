package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New()
	ch := b.Subscribe(1)
	defer b.Unsubscribe(ch)

	b.Publish(Event{Task: "t1", Kind: "started"})

	select {
	case ev := <-ch:
		assert.Equal(t, "t1", ev.Task)
		assert.Equal(t, "started", ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	b := New()
	ch := b.Subscribe(1)
	defer b.Unsubscribe(ch)

	b.Publish(Event{Task: "a"})
	b.Publish(Event{Task: "b"})

	assert.Equal(t, int64(1), b.Dropped)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch := b.Subscribe(1)
	b.Unsubscribe(ch)

	_, ok := <-ch
	assert.False(t, ok)
}

func TestCloseClosesAllSubscribers(t *testing.T) {
	b := New()
	ch1 := b.Subscribe(1)
	ch2 := b.Subscribe(1)

	b.Close()

	_, ok1 := <-ch1
	_, ok2 := <-ch2
	assert.False(t, ok1)
	assert.False(t, ok2)
}
