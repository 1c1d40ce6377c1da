package repository

import (
	"context"

	"collab_chat_service/internal/chat/domain"
)

// PubSub definition realtime topic transport, delivery is at-most-once
type PubSub interface {
	Publish(ctx context.Context, topic string, event domain.RealtimeEvent) error
	// Subscribe 訂閱 topic, ctx 結束時取消訂閱
	Subscribe(ctx context.Context, topic string, handler func(domain.RealtimeEvent)) error
}
