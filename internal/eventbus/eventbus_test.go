package eventbus

import "testing"

type tick struct {
	Seq int
}

func TestPublishSubscribe(t *testing.T) {
	b := New[tick]()
	sub := b.Subscribe()
	b.Publish(tick{Seq: 7})
	if got := <-sub; got.Seq != 7 {
		t.Fatalf("expected seq 7, got %v", got)
	}
	b.Unsubscribe(sub)
	if _, ok := <-sub; ok {
		t.Fatalf("channel should be closed after unsubscribe")
	}
}

func TestPublishAfterClose(t *testing.T) {
	b := New[string]()
	sub := b.Subscribe()
	b.Close()
	b.Publish("dropped")
	if _, ok := <-sub; ok {
		t.Fatalf("channel should be closed")
	}
	// Subscribing after close yields a closed channel.
	late := b.Subscribe()
	if _, ok := <-late; ok {
		t.Fatalf("late subscription should be closed")
	}
}

func TestNonBlockingDelivery(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe()
	for i := 0; i < 20; i++ {
		b.Publish(i) // buffer is subscriberBuffer; extra events are dropped, not blocking
	}
	if got := <-sub; got != 0 {
		t.Fatalf("expected first event, got %v", got)
	}
	b.Close()
}
