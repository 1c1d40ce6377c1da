package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"collab_chat_service/internal/chat/domain"
	"collab_chat_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

// Publish 將 event 序列化後發布到 topic
func (r *RedisPubSub) Publish(ctx context.Context, topic string, event domain.RealtimeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, topic, data).Err()
}

// Subscribe 訂閱 topic，收到訊息後呼叫 handler 處理
func (r *RedisPubSub) Subscribe(ctx context.Context, topic string, handler func(domain.RealtimeEvent)) error {
	sub := r.client.Subscribe(ctx, topic)
	// 等待訂閱確認
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}

				var evt domain.RealtimeEvent
				if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
					logger.Log.Error("realtime event decode failed", zap.String("topic", topic), zap.Error(err))
					continue
				}
				handler(evt)
			case <-ctx.Done():
				logger.Log.Debug("subscription closed", zap.String("topic", topic))
				return
			}
		}
	}()
	return nil
}
