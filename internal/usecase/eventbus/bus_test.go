package eventbus

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zaebee/agents-list-sub002/internal/domain"
)

func newTestBus() *Bus {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestPublishTyped(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	var routed, completed atomic.Int64
	bus.Subscribe(domain.EventTaskRouted, func(_ context.Context, _ domain.Event) {
		routed.Add(1)
	})
	bus.Subscribe(domain.EventTaskCompleted, func(_ context.Context, _ domain.Event) {
		completed.Add(1)
	})

	bus.Publish(context.Background(), domain.Event{Type: domain.EventTaskRouted, TaskID: "t1"})

	waitFor(t, func() bool { return routed.Load() == 1 })
	if completed.Load() != 0 {
		t.Error("typed subscriber received foreign event")
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	var count atomic.Int64
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) {
		count.Add(1)
	})

	bus.Publish(context.Background(), domain.Event{Type: domain.EventTaskCreated})
	bus.Publish(context.Background(), domain.Event{Type: domain.EventTaskAssigned})

	waitFor(t, func() bool { return count.Load() == 2 })
}

func TestUnsubscribe(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	var count atomic.Int64
	unsub := bus.Subscribe(domain.EventTaskCreated, func(_ context.Context, _ domain.Event) {
		count.Add(1)
	})

	bus.Publish(context.Background(), domain.Event{Type: domain.EventTaskCreated})
	waitFor(t, func() bool { return count.Load() == 1 })

	unsub()
	bus.Publish(context.Background(), domain.Event{Type: domain.EventTaskCreated})

	time.Sleep(50 * time.Millisecond)
	if count.Load() != 1 {
		t.Errorf("unsubscribed handler still invoked, count = %d", count.Load())
	}
}

func TestPanickingHandlerRecovered(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	var after atomic.Int64
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) {
		panic("boom")
	})
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) {
		after.Add(1)
	})

	bus.Publish(context.Background(), domain.Event{Type: domain.EventRoutingDegraded})
	waitFor(t, func() bool { return after.Load() == 1 })
}

func TestConcurrentPublishAndClose(t *testing.T) {
	// Close must never observe a handler slot appearing after its wait
	// started, whatever the interleaving with concurrent publishers.
	bus := newTestBus()
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) {})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(context.Background(), domain.Event{Type: domain.EventTaskCreated})
			}
		}()
	}

	bus.Close()
	wg.Wait()
}

func TestPublishAfterClose(t *testing.T) {
	bus := newTestBus()

	var count atomic.Int64
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) {
		count.Add(1)
	})

	bus.Close()
	bus.Publish(context.Background(), domain.Event{Type: domain.EventTaskCreated})

	time.Sleep(50 * time.Millisecond)
	if count.Load() != 0 {
		t.Error("closed bus must drop events")
	}
}
