package event

import (
	"context"
	"sync"

	"github.com/blues/cfp/internal/logger"
)

// Handler 事件处理函数
type Handler func(ctx context.Context, ev Event)

// Bus 进程内事件总线，按类型分发给订阅者
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
}

// NewBus 创建事件总线
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]Handler),
	}
}

// Subscribe 订阅指定类型的事件
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Publish 异步分发事件，订阅者的panic不影响发布方
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	handlers := b.handlers[ev.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		h := h
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Event handler panic for %s: %v", ev.Type, r)
				}
			}()
			h(ctx, ev)
		}()
	}
}
