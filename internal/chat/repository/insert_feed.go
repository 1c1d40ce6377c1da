package repository

import (
	"context"
	"encoding/json"
	"sync"

	"collab_chat_service/internal/chat/domain"
)

// InsertFeed fallback source of message row inserts
type InsertFeed interface {
	// Subscribe 註冊 handler, 回傳取消函式
	Subscribe(handler func(domain.InsertNotification)) (unsubscribe func())
	// Run 讀取來源直到 ctx 結束
	Run(ctx context.Context) error
}

// feedHub in-process fan-out shared by feed implementations
type feedHub struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(domain.InsertNotification)
}

func newFeedHub() *feedHub {
	return &feedHub{handlers: make(map[int]func(domain.InsertNotification))}
}

func (h *feedHub) Subscribe(handler func(domain.InsertNotification)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.handlers[id] = handler
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.handlers, id)
			h.mu.Unlock()
		})
	}
}

func (h *feedHub) dispatch(n domain.InsertNotification) {
	h.mu.RLock()
	handlers := make([]func(domain.InsertNotification), 0, len(h.handlers))
	for _, fn := range h.handlers {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(n)
	}
}

// cdcEnvelope debezium style change event
type cdcEnvelope struct {
	Payload *struct {
		Op    string                     `json:"op"`
		After *domain.InsertNotification `json:"after"`
		Source struct {
			Table string `json:"table"`
		} `json:"source"`
	} `json:"payload"`
}

// decodeInsert accept a flat {id, thread_id} object or a debezium envelope, ok=false for non-insert events
func decodeInsert(raw []byte) (domain.InsertNotification, bool, error) {
	var env cdcEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.InsertNotification{}, false, err
	}
	if env.Payload != nil {
		if env.Payload.Op != "c" || env.Payload.After == nil {
			return domain.InsertNotification{}, false, nil
		}
		n := *env.Payload.After
		if n.Table == "" {
			n.Table = env.Payload.Source.Table
		}
		return n, n.MessageID != "", nil
	}

	var n domain.InsertNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		return domain.InsertNotification{}, false, err
	}
	return n, n.MessageID != "" && n.ThreadID != "", nil
}

// NopInsertFeed feed that never delivers, used when the fallback is disabled
type NopInsertFeed struct{}

// Subscribe no-op
func (NopInsertFeed) Subscribe(func(domain.InsertNotification)) func() { return func() {} }

// Run block until ctx ends
func (NopInsertFeed) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
