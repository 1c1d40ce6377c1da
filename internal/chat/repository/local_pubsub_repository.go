package repository

import (
	"context"
	"sync"

	"collab_chat_service/internal/chat/domain"
)

// LocalPubSub in-process PubSub for a single node
type LocalPubSub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(domain.RealtimeEvent)
}

// NewLocalPubSub create LocalPubSub
func NewLocalPubSub() *LocalPubSub {
	return &LocalPubSub{subs: make(map[string]map[int]func(domain.RealtimeEvent))}
}

// Publish deliver event synchronously to current subscribers of topic
func (p *LocalPubSub) Publish(ctx context.Context, topic string, event domain.RealtimeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.RLock()
	handlers := make([]func(domain.RealtimeEvent), 0, len(p.subs[topic]))
	for _, h := range p.subs[topic] {
		handlers = append(handlers, h)
	}
	p.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

// Subscribe register handler until ctx is done
func (p *LocalPubSub) Subscribe(ctx context.Context, topic string, handler func(domain.RealtimeEvent)) error {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	if p.subs[topic] == nil {
		p.subs[topic] = make(map[int]func(domain.RealtimeEvent))
	}
	p.subs[topic][id] = handler
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		delete(p.subs[topic], id)
		if len(p.subs[topic]) == 0 {
			delete(p.subs, topic)
		}
		p.mu.Unlock()
	}()
	return nil
}

// Subscribers number of handlers on topic
func (p *LocalPubSub) Subscribers(topic string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs[topic])
}
