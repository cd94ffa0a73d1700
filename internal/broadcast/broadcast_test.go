package broadcast

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBroadcaster_SubscribeUnsubscribe(t *testing.T) {
	b := New[int](4)

	id, ch := b.Subscribe()
	if b.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", b.SubscriberCount())
	}

	if !b.Unsubscribe(id) {
		t.Error("expected Unsubscribe to report a registered id")
	}
	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", b.SubscriberCount())
	}
	if b.Unsubscribe(id) {
		t.Error("second Unsubscribe should report false")
	}

	// Channel should be closed
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed")
		}
	default:
		t.Error("channel should be closed and readable")
	}
}

func TestBroadcaster_Broadcast(t *testing.T) {
	b := New[string](4)

	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	if n := b.Broadcast("2000433"); n != 1 {
		t.Errorf("expected 1 delivery, got %d", n)
	}

	select {
	case received := <-ch:
		if received != "2000433" {
			t.Errorf("expected 2000433, got %s", received)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for broadcast")
	}
}

func TestBroadcaster_SameValueForAllSubscribers(t *testing.T) {
	b := New[int](1)

	const n = 5
	chans := make([]<-chan int, n)
	for i := range chans {
		_, chans[i] = b.Subscribe()
	}
	defer b.Close()

	b.Broadcast(42)

	for i, ch := range chans {
		if got := <-ch; got != 42 {
			t.Errorf("subscriber %d got %d, want 42", i, got)
		}
	}
}

func TestBroadcaster_ConcurrentSubscribeUnsubscribe(t *testing.T) {
	b := New[int](1)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, _ := b.Subscribe()
			time.Sleep(time.Millisecond)
			b.Unsubscribe(id)
		}()
	}

	wg.Wait()

	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after cleanup, got %d", b.SubscriberCount())
	}
}

func TestBroadcaster_ConcurrentSubscribeBroadcast(t *testing.T) {
	b := New[int](8)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, ch := b.Subscribe()
			drained := make(chan struct{})
			go func() {
				defer close(drained)
				for range ch {
				}
			}()
			time.Sleep(5 * time.Millisecond)
			b.Unsubscribe(id)
			<-drained
		}()
	}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			b.Broadcast(n)
		}(i)
	}

	wg.Wait()

	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", b.SubscriberCount())
	}
}

func TestBroadcaster_Close(t *testing.T) {
	b := New[int](1)

	var channels []<-chan int
	for i := 0; i < 5; i++ {
		_, ch := b.Subscribe()
		channels = append(channels, ch)
	}

	b.Close()

	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after close, got %d", b.SubscriberCount())
	}

	for i, ch := range channels {
		select {
		case _, ok := <-ch:
			if ok {
				t.Errorf("channel %d should be closed", i)
			}
		default:
			t.Errorf("channel %d should be closed and readable", i)
		}
	}

	_, late := b.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscribing after Close should yield a closed channel")
	}
}

func TestBroadcaster_SlowSubscriber(t *testing.T) {
	b := New[int](100)

	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	// Fill the buffer (100) + 1 more
	for i := 0; i < 101; i++ {
		b.Broadcast(i)
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			goto done
		}
	}
done:

	if count != 100 {
		t.Errorf("expected 100 buffered messages, got %d", count)
	}
}
