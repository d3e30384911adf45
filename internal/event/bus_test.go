package event

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(2)
	var mu sync.Mutex
	var received []Event

	handler := func(ctx context.Context, ev Event) {
		defer wg.Done()
		mu.Lock()
		received = append(received, ev)
		mu.Unlock()
	}
	bus.Subscribe(TypeBackingConfirmed, handler)
	bus.Subscribe(TypeBackingConfirmed, handler)
	// 其他类型的订阅者不应收到
	bus.Subscribe(TypeRefundFailed, func(ctx context.Context, ev Event) {
		t.Error("收到了未订阅类型的事件")
	})

	bus.Publish(context.Background(), Event{
		Type:      TypeBackingConfirmed,
		ProjectId: 1,
		BackingId: 10,
		Amount:    8000,
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("订阅者未在超时内收到事件")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("收到 %d 个事件, want 2", len(received))
	}
	if received[0].BackingId != 10 || received[0].Amount != 8000 {
		t.Errorf("事件内容 = %+v", received[0])
	}
}

func TestBusHandlerPanicDoesNotPropagate(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe(TypeProjectSettled, func(ctx context.Context, ev Event) {
		defer wg.Done()
		panic("handler exploded")
	})

	// 不应panic到发布方
	bus.Publish(context.Background(), Event{Type: TypeProjectSettled, ProjectId: 1})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("订阅者未执行")
	}
}

func TestBusNoSubscribers(t *testing.T) {
	bus := NewBus()
	// 没有订阅者时发布不应阻塞或panic
	bus.Publish(context.Background(), Event{Type: TypeProjectApproved, ProjectId: 1})
}
